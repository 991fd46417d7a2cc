package boltdb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/draft-lottery-backend/internal/models"
	"github.com/ArowuTest/draft-lottery-backend/internal/repositories"
	bolt "go.etcd.io/bbolt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repositories.UserRepository = (*UserRepository)(nil)

// UserRepository stores users by id with a secondary email index bucket
type UserRepository struct {
	db *bolt.DB
}

func NewUserRepository(db *bolt.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	return r.db.Update(func(tx *bolt.Tx) error {
		emails := tx.Bucket(userEmailsBucket)
		if emails.Get([]byte(user.Email)) != nil {
			return repositories.ErrDuplicateEmail
		}
		data, err := encode(user)
		if err != nil {
			return fmt.Errorf("encode user: %w", err)
		}
		if err := tx.Bucket(usersBucket).Put([]byte(user.ID.Hex()), data); err != nil {
			return err
		}
		return emails.Put([]byte(user.Email), []byte(user.ID.Hex()))
	})
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(tx *bolt.Tx) error {
		key := tx.Bucket(userEmailsBucket).Get([]byte(strings.ToLower(strings.TrimSpace(email))))
		if key == nil {
			return repositories.ErrUserNotFound
		}
		var err error
		user, err = getUser(tx, key)
		return err
	})
	return user, err
}

func (r *UserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user *models.User
	err := r.db.View(func(tx *bolt.Tx) error {
		var err error
		user, err = getUser(tx, []byte(id.Hex()))
		return err
	})
	return user, err
}

func getUser(tx *bolt.Tx, key []byte) (*models.User, error) {
	data := tx.Bucket(usersBucket).Get(key)
	if data == nil {
		return nil, repositories.ErrUserNotFound
	}
	var user models.User
	if err := decode(data, &user); err != nil {
		return nil, fmt.Errorf("decode user: %w", err)
	}
	return &user, nil
}
