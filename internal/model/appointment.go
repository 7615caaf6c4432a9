package model

// AppointmentStatus tracks a booking through the practice's confirmation flow.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCompleted AppointmentStatus = "completed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// AppointmentStatuses lists every status an admin may set.
var AppointmentStatuses = []AppointmentStatus{
	AppointmentPending,
	AppointmentConfirmed,
	AppointmentCompleted,
	AppointmentCancelled,
}

func (s AppointmentStatus) Valid() bool {
	for _, v := range AppointmentStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// ConsultationType is the clinical category of an appointment.
type ConsultationType string

const (
	ConsultationGeneral        ConsultationType = "general"
	ConsultationSports         ConsultationType = "sports"
	ConsultationRehabilitation ConsultationType = "rehabilitation"
	ConsultationChronic        ConsultationType = "chronic"
)

var ConsultationTypes = []ConsultationType{
	ConsultationGeneral,
	ConsultationSports,
	ConsultationRehabilitation,
	ConsultationChronic,
}

func (t ConsultationType) Valid() bool {
	for _, v := range ConsultationTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Appointment is a consultation booking. UserID is nil for guest bookings.
type Appointment struct {
	Base
	UserID           *string           `gorm:"type:varchar(64);index" json:"user_id"`
	Name             string            `gorm:"type:varchar(255);not null" json:"name"`
	Email            string            `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone            string            `gorm:"type:varchar(32);not null" json:"phone"`
	Date             string            `gorm:"type:varchar(10);not null" json:"date"` // YYYY-MM-DD
	Time             string            `gorm:"type:varchar(5);not null" json:"time"`  // HH:MM
	ConsultationType ConsultationType  `gorm:"type:varchar(32);not null" json:"consultation_type"`
	Service          string            `gorm:"type:varchar(64)" json:"service,omitempty"` // catalogue slug
	Status           AppointmentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Message          string            `gorm:"type:text" json:"message,omitempty"`
}

func (a Appointment) Clone() Appointment {
	a.UserID = cloneString(a.UserID)
	return a
}
