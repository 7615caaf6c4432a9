package repository

import (
	"context"
	"errors"
	"fmt"

	"practice/internal/model"
	"practice/internal/store"

	"gorm.io/gorm"
)

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, page, limit int) ([]model.User, int64, error)
}

type userRepository struct {
	db  *gorm.DB
	ids store.IDGenerator
}

// NewUserRepository returns a Postgres-backed UserRepository
func NewUserRepository(db *gorm.DB, ids store.IDGenerator) UserRepository {
	return &userRepository{db: db, ids: ids}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	user.ID = r.ids()
	err := GetDB(ctx, r.db).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateEmail
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Scopes(scopePage(page, limit)).Order("created_at asc").Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// memoryUserRepository serves users from the in-memory store.
type memoryUserRepository struct {
	s *store.Store
}

// NewMemoryUserRepository returns a UserRepository over the in-memory store.
func NewMemoryUserRepository(s *store.Store) UserRepository {
	return &memoryUserRepository{s: s}
}

func (r *memoryUserRepository) Create(_ context.Context, user *model.User) error {
	created, err := r.s.Users.CreateUnique(*user, func(existing model.User) bool {
		return existing.Email == user.Email
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("create user: %w", err)
	}
	*user = created
	return nil
}

func (r *memoryUserRepository) GetByID(_ context.Context, id string) (*model.User, error) {
	u, err := r.s.Users.FindByID(id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *memoryUserRepository) GetByEmail(_ context.Context, email string) (*model.User, error) {
	u, err := r.s.Users.FindOne(func(u model.User) bool { return u.Email == email })
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *memoryUserRepository) List(_ context.Context, pageNum, limit int) ([]model.User, int64, error) {
	all := r.s.Users.FindAll(nil)
	return page(all, pageNum, limit), int64(len(all)), nil
}
