package handler

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"practice/internal/model"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the domain enum checks to gin's validator and
// reports field names by their JSON tag.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}

	var err error
	registerOnce.Do(func() {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
		err = errors.Join(
			v.RegisterValidation("appointment_status", func(fl validator.FieldLevel) bool {
				return model.AppointmentStatus(fl.Field().String()).Valid()
			}),
			v.RegisterValidation("consultation_type", func(fl validator.FieldLevel) bool {
				return model.ConsultationType(fl.Field().String()).Valid()
			}),
			v.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
				return model.QuestionType(fl.Field().String()).Valid()
			}),
		)
	})
	return err
}
