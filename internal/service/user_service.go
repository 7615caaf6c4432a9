package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"practice/internal/auth"
	"practice/internal/model"
	"practice/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// DTOs for Request validation
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"max=30"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone" binding:"max=30"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"required,oneof=user admin"`
}

// DTO for returning User without exposing the password hash
type UserResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Role      model.Role `json:"role"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
}

// AuthResponse is returned by register and login. The token is also set as a cookie.
type AuthResponse struct {
	User      UserResponse `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, actor *auth.Principal) (*UserResponse, error)
	CreateUser(ctx context.Context, actor *auth.Principal, req CreateUserRequest) (*UserResponse, error)
	GetUserByID(ctx context.Context, actor *auth.Principal, id string) (*UserResponse, error)
	ListUsers(ctx context.Context, actor *auth.Principal, page, limit int) ([]UserResponse, int64, error)
}

type userService struct {
	repo       repository.UserRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	sessions   *auth.SessionManager
	bcryptCost int
}

// NewUserService returns a new instance of UserService
func NewUserService(repos repository.Repositories, sessions *auth.SessionManager, bcryptCost int) UserService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{
		repo:       repos.Users,
		auditRepo:  repos.Audit,
		txManager:  repos.Tx,
		sessions:   sessions,
		bcryptCost: bcryptCost,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Helper: parse model to standard json API response
func mapUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
		UpdatedAt: user.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.create(ctx, nil, req.Name, req.Email, req.Phone, req.Password, model.RoleUser, model.ActionRegisterUser)
	if err != nil {
		return nil, err
	}
	return s.startSession(user)
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.repo.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(user)
}

func (s *userService) startSession(user *model.User) (*AuthResponse, error) {
	session, err := s.sessions.Issue(auth.PrincipalFromUser(*user))
	if err != nil {
		return nil, err
	}
	return &AuthResponse{
		User:      *mapUserResponse(user),
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *userService) Me(ctx context.Context, actor *auth.Principal) (*UserResponse, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	user, err := s.repo.GetByID(ctx, actor.ID)
	if err != nil {
		// A valid token for a user the store no longer has.
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *userService) CreateUser(ctx context.Context, actor *auth.Principal, req CreateUserRequest) (*UserResponse, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, err
	}
	role, err := model.ParseRole(req.Role)
	if err != nil {
		return nil, invalid("role", "must be user or admin")
	}
	user, err := s.create(ctx, actor, req.Name, req.Email, req.Phone, req.Password, role, model.ActionCreateUser)
	if err != nil {
		return nil, err
	}
	return mapUserResponse(user), nil
}

func (s *userService) create(ctx context.Context, actor *auth.Principal, name, email, phone, password string, role model.Role, action string) (*model.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, invalid("email", "must be a valid email address")
	}
	if len(password) < 6 {
		return nil, invalid("password", "must be at least 6 characters")
	}

	// Hash password automatically
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, invalid("password", "cannot be used")
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Phone:    strings.TrimSpace(phone),
		Password: string(hashedPassword),
		Role:     role,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicateEmail) {
				return conflict("email %s is already registered", email)
			}
			return err
		}
		self := actor
		if self == nil {
			p := auth.PrincipalFromUser(*user)
			self = &p
		}
		return recordAudit(txCtx, s.auditRepo, self, action, user.ID, user.Email, map[string]any{"role": user.Role})
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) GetUserByID(ctx context.Context, actor *auth.Principal, id string) (*UserResponse, error) {
	if err := auth.CanAccess(actor, &id); err != nil {
		return nil, err
	}
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return mapUserResponse(user), nil
}

func (s *userService) ListUsers(ctx context.Context, actor *auth.Principal, page, limit int) ([]UserResponse, int64, error) {
	if err := auth.Authorize(actor, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	users, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, *mapUserResponse(&users[i]))
	}
	return responses, total, nil
}
