// internal/model/organization.go
package model

import "time"

// Organization is a node in the council/department hierarchy. Type is a
// free-form category such as "LGA" or "Department".
type Organization struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:text;not null" json:"name"`
	Type      string    `gorm:"type:text;not null;default:''" json:"type"`
	ParentID  *uint     `gorm:"column:parent_id" json:"parent_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Parent *Organization `gorm:"foreignKey:ParentID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Organization) TableName() string {
	return "organizations"
}
