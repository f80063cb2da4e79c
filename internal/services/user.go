package services

import (
	"context"

	"github.com/lungscan/apiserver/types"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// UserService encapsulates user use-cases.
type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) GetByID(ctx context.Context, id int) (types.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) GetByEmail(ctx context.Context, email string) (types.User, error) {
	return s.repo.GetByEmail(ctx, email)
}

// Create stores a new user. The role is clamped to the known set; any
// unknown value silently becomes "user".
func (s *UserService) Create(ctx context.Context, user types.User) (types.User, error) {
	if user.Role != types.RoleDoctor {
		user.Role = types.RoleUser
	}
	return s.repo.Create(ctx, user)
}
