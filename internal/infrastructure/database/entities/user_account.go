package entities

import "time"

// UserAccount holds the credit balance for one identity-provider account.
type UserAccount struct {
	UID       string    `gorm:"type:text;primaryKey"`
	Email     string    `gorm:"type:text"`
	Credits   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserAccount) TableName() string {
	return "user_accounts"
}
