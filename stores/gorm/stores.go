package gorm

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	na "github.com/panyam/notesauth"
)

// AutoMigrate runs database migrations for all notesauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}

// UserStore implements na.UserStore using GORM. The caller supplies the
// *gorm.DB with whatever dialector fits the deployment.
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) UserExists(email string) (bool, error) {
	var count int64
	err := s.db.Model(&UserModel{}).
		Where("email = ?", na.NormalizeEmail(email)).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *UserStore) GetUserByEmail(email string) (*na.User, error) {
	var model UserModel
	err := s.db.First(&model, "email = ?", na.NormalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, na.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) CreateUser(user *na.User) (*na.User, error) {
	model := UserToModel(user)
	model.ID = uuid.NewString()
	model.Email = na.NormalizeEmail(model.Email)

	err := s.db.Create(model).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, na.ErrUserExists
	}
	if err != nil {
		// drivers without ErrDuplicatedKey translation still surface the
		// conflict; recheck before reporting a generic failure
		if exists, checkErr := s.UserExists(model.Email); checkErr == nil && exists {
			return nil, na.ErrUserExists
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) EnsureFederatedUser(email, name, googleId string) (*na.User, error) {
	email = na.NormalizeEmail(email)
	var result *na.User
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model UserModel
		err := tx.First(&model, "email = ?", email).Error
		if err == nil {
			if model.GoogleID == "" {
				model.GoogleID = googleId
				if err := tx.Save(&model).Error; err != nil {
					return err
				}
			}
			result = model.ToUser()
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		model = UserModel{
			ID:       uuid.NewString(),
			Email:    email,
			Name:     name,
			GoogleID: googleId,
		}
		if err := tx.Create(&model).Error; err != nil {
			return err
		}
		result = model.ToUser()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
