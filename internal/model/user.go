package model

// User is a registered principal of the practice website.
type User struct {
	Base
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Email    string `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone    string `gorm:"type:varchar(32)" json:"phone,omitempty"`
	Password string `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialized
	Role     Role   `gorm:"type:varchar(20);not null;index" json:"role"`
}

func (u User) Clone() User { return u }
