package model

// Role is a permission tag stored in the `roles` table. Users reference
// roles by id through their role list.
type Role struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Name        string  `gorm:"size:255;uniqueIndex;not null" json:"name"`
	Description *string `gorm:"size:1024" json:"description"`
}
