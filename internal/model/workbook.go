package model

import "time"

// WorkbookStatus is the lifecycle position of a workbook.
// Status only moves forward: unassigned -> assigned -> in_progress -> submitted -> reviewed.
type WorkbookStatus string

const (
	WorkbookUnassigned WorkbookStatus = "unassigned"
	WorkbookAssigned   WorkbookStatus = "assigned"
	WorkbookInProgress WorkbookStatus = "in_progress"
	WorkbookSubmitted  WorkbookStatus = "submitted"
	WorkbookReviewed   WorkbookStatus = "reviewed"
)

func (s WorkbookStatus) Valid() bool {
	switch s {
	case WorkbookUnassigned, WorkbookAssigned, WorkbookInProgress, WorkbookSubmitted, WorkbookReviewed:
		return true
	}
	return false
}

// Editable reports whether the assignee may still save or submit answers.
func (s WorkbookStatus) Editable() bool {
	return s == WorkbookAssigned || s == WorkbookInProgress
}

type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionMultipleChoice QuestionType = "multipleChoice"
	QuestionCheckbox       QuestionType = "checkbox"
	QuestionScale          QuestionType = "scale"
	QuestionDropdown       QuestionType = "dropdown"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionMultipleChoice, QuestionCheckbox, QuestionScale, QuestionDropdown:
		return true
	}
	return false
}

// HasOptions reports whether answers must be picked from Question.Options.
func (t QuestionType) HasOptions() bool {
	return t == QuestionMultipleChoice || t == QuestionCheckbox || t == QuestionDropdown
}

// Question is one prompt inside a workbook. Answer holds the recorded reply;
// checkbox questions may carry several values, every other type at most one.
type Question struct {
	ID       string       `json:"id"`
	Type     QuestionType `json:"type"`
	Text     string       `json:"text"`
	Required bool         `json:"required"`
	Options  []string     `json:"options,omitempty"`
	ScaleMin int          `json:"scale_min,omitempty"`
	ScaleMax int          `json:"scale_max,omitempty"`
	Answer   []string     `json:"answer,omitempty"`
}

func (q Question) Clone() Question {
	q.Options = append([]string(nil), q.Options...)
	q.Answer = append([]string(nil), q.Answer...)
	return q
}

// Workbook is an exercise or questionnaire assigned to a user.
type Workbook struct {
	Base
	Title         string         `gorm:"type:varchar(255);not null" json:"title"`
	Description   string         `gorm:"type:text" json:"description"`
	Content       string         `gorm:"type:text" json:"content"`
	Questions     []Question     `gorm:"serializer:json" json:"questions,omitempty"`
	AssignedTo    *string        `gorm:"type:varchar(64);index" json:"assigned_to"`
	Status        WorkbookStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	UserResponse  string         `gorm:"type:text" json:"user_response,omitempty"`
	AdminFeedback string         `gorm:"type:text" json:"admin_feedback,omitempty"`
	AssignedAt    *time.Time     `json:"assigned_at,omitempty"`
	SubmittedAt   *time.Time     `json:"submitted_at,omitempty"`
	ReviewedAt    *time.Time     `json:"reviewed_at,omitempty"`
}

func (w Workbook) Clone() Workbook {
	w.AssignedTo = cloneString(w.AssignedTo)
	w.AssignedAt = cloneTime(w.AssignedAt)
	w.SubmittedAt = cloneTime(w.SubmittedAt)
	w.ReviewedAt = cloneTime(w.ReviewedAt)
	if w.Questions != nil {
		qs := make([]Question, len(w.Questions))
		for i, q := range w.Questions {
			qs[i] = q.Clone()
		}
		w.Questions = qs
	}
	return w
}
