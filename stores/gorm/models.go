package gorm

import (
	"time"

	na "github.com/panyam/notesauth"
)

// UserModel is the GORM model for users. Email carries the unique index
// that enforces one account per identity.
type UserModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Email     string    `gorm:"uniqueIndex;size:255"`
	Name      string    `gorm:"size:255"`
	DOB       string    `gorm:"size:32"`
	GoogleID  string    `gorm:"size:128;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *na.User {
	return &na.User{
		Id:        m.ID,
		Email:     m.Email,
		Name:      m.Name,
		DOB:       m.DOB,
		GoogleId:  m.GoogleID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func UserToModel(user *na.User) *UserModel {
	return &UserModel{
		ID:        user.Id,
		Email:     user.Email,
		Name:      user.Name,
		DOB:       user.DOB,
		GoogleID:  user.GoogleId,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
