// internal/model/user.go
package model

import "time"

type Role string

const (
	RoleAdmin            Role = "admin"
	RoleSubmitter        Role = "submitter"
	RoleInternalApprover Role = "internal_approver"
	RoleLGAApprover      Role = "lga_approver"
)

// Roles lists every role accepted by the users.role check constraint.
var Roles = []Role{RoleAdmin, RoleSubmitter, RoleInternalApprover, RoleLGAApprover}

func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:text;not null" json:"name"`
	Email          string    `gorm:"type:text;uniqueIndex;not null" json:"email"`
	Username       string    `gorm:"type:text;uniqueIndex;not null" json:"username"`
	PasswordHash   string    `gorm:"column:password_hash;type:text;not null" json:"-"`
	Role           Role      `gorm:"type:text;not null" json:"role"`
	OrganizationID *uint     `gorm:"column:organization_id" json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Organization *Organization `gorm:"foreignKey:OrganizationID;constraint:OnDelete:SET NULL" json:"organization,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Viewer returns the identity used to scope report reads for this user.
func (u *User) Viewer() Viewer {
	return Viewer{
		UserID:         u.ID,
		Role:           u.Role,
		OrganizationID: u.OrganizationID,
	}
}
