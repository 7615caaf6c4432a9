package model

const (
	ActionRegisterUser      = "REGISTER_USER"
	ActionCreateUser        = "CREATE_USER"
	ActionCreateAppointment = "CREATE_APPOINTMENT"
	ActionUpdateAppointment = "UPDATE_APPOINTMENT_STATUS"
	ActionCancelAppointment = "CANCEL_APPOINTMENT"
	ActionDeleteAppointment = "DELETE_APPOINTMENT"
	ActionCreateWorkbook    = "CREATE_WORKBOOK"
	ActionUpdateWorkbook    = "UPDATE_WORKBOOK"
	ActionAssignWorkbook    = "ASSIGN_WORKBOOK"
	ActionSubmitWorkbook    = "SUBMIT_WORKBOOK"
	ActionReviewWorkbook    = "REVIEW_WORKBOOK"
	ActionDeleteWorkbook    = "DELETE_WORKBOOK"
)

// AuditLog tracks who changed what and when.
type AuditLog struct {
	Base
	UserID     *string `gorm:"type:varchar(64);index" json:"user_id"` // nil for guest bookings
	Action     string  `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string  `gorm:"type:varchar(64);index" json:"entity_id"`
	EntityName string  `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string  `gorm:"type:jsonb" json:"details"` // serialized JSON payload
}

func (l AuditLog) Clone() AuditLog {
	l.UserID = cloneString(l.UserID)
	return l
}
