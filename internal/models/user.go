package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID                     uint   `json:"id" gorm:"primaryKey"`
	Email                  string `json:"email" gorm:"size:255;uniqueIndex"`
	DisplayName            string `json:"displayName" gorm:"size:128"`
	PasswordHash           string `json:"-" gorm:"size:255"` // 由外部认证层写入
	DefaultSummaryTemplate string `json:"defaultSummaryTemplate" gorm:"size:64"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// GetUserByID 按主键查用户
func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var u User
	if err := db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}
