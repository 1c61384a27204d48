package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"github.com/google/uuid"

	na "github.com/panyam/notesauth"
)

// KindUser is the Datastore kind for user entities
const KindUser = "User"

// userEntity is the stored representation. Entities are keyed by
// normalized email so unique-identity enforcement is a transactional
// get-then-put on a single key.
type userEntity struct {
	UserID    string    `datastore:"user_id"`
	Email     string    `datastore:"email"`
	Name      string    `datastore:"name,noindex"`
	DOB       string    `datastore:"dob,noindex"`
	GoogleID  string    `datastore:"google_id"`
	CreatedAt time.Time `datastore:"created_at"`
	UpdatedAt time.Time `datastore:"updated_at"`
}

func (e *userEntity) toUser() *na.User {
	return &na.User{
		Id:        e.UserID,
		Email:     e.Email,
		Name:      e.Name,
		DOB:       e.DOB,
		GoogleId:  e.GoogleID,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// UserStore implements na.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *UserStore) WithContext(ctx context.Context) *UserStore {
	return &UserStore{
		client:    s.client,
		namespace: s.namespace,
		ctx:       ctx,
	}
}

func (s *UserStore) userKey(email string) *datastore.Key {
	key := datastore.NameKey(KindUser, na.NormalizeEmail(email), nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) UserExists(email string) (bool, error) {
	var entity userEntity
	err := s.client.Get(s.ctx, s.userKey(email), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserStore) GetUserByEmail(email string) (*na.User, error) {
	var entity userEntity
	err := s.client.Get(s.ctx, s.userKey(email), &entity)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, na.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return entity.toUser(), nil
}

func (s *UserStore) CreateUser(user *na.User) (*na.User, error) {
	key := s.userKey(user.Email)
	now := time.Now()
	entity := &userEntity{
		UserID:    uuid.NewString(),
		Email:     na.NormalizeEmail(user.Email),
		Name:      user.Name,
		DOB:       user.DOB,
		GoogleID:  user.GoogleId,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var existing userEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return na.ErrUserExists
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, entity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entity.toUser(), nil
}

func (s *UserStore) EnsureFederatedUser(email, name, googleId string) (*na.User, error) {
	key := s.userKey(email)
	now := time.Now()
	var resolved userEntity

	_, err := s.client.RunInTransaction(s.ctx, func(tx *datastore.Transaction) error {
		var existing userEntity
		err := tx.Get(key, &existing)
		if err == nil {
			if existing.GoogleID == "" {
				existing.GoogleID = googleId
				existing.UpdatedAt = now
				if _, err := tx.Put(key, &existing); err != nil {
					return err
				}
			}
			resolved = existing
			return nil
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		resolved = userEntity{
			UserID:    uuid.NewString(),
			Email:     na.NormalizeEmail(email),
			Name:      name,
			GoogleID:  googleId,
			CreatedAt: now,
			UpdatedAt: now,
		}
		_, err = tx.Put(key, &resolved)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resolved.toUser(), nil
}
