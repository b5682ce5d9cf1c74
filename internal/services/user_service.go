package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/policy"
	"github.com/yukikurage/project-management-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService provides business logic for user profile operations.
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.UserRepository) *UserService {
	return &UserService{
		userRepo: userRepo,
	}
}

// GetUser returns a user record. Non-superusers may only read themselves.
func (s *UserService) GetUser(principal policy.Principal, userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !policy.CanAccessUser(principal, userID) {
		return nil, ErrPermissionDenied
	}

	return user, nil
}

// ListUsers returns all users; superusers only.
func (s *UserService) ListUsers(principal policy.Principal, skip, limit int) ([]models.User, error) {
	if !principal.IsSuperuser {
		return nil, ErrPermissionDenied
	}

	users, err := s.userRepo.List(skip, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUserInput represents a partial profile update; nil fields are
// untouched.
type UpdateUserInput struct {
	Email    *string
	Username *string
	FullName *string
	Password *string
	IsActive *bool
}

// UpdateUser applies a partial update to a user record. Non-superusers may
// only update themselves.
func (s *UserService) UpdateUser(principal policy.Principal, userID uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !policy.CanAccessUser(principal, userID) {
		return nil, ErrPermissionDenied
	}

	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if other, err := s.userRepo.FindByEmail(email); err == nil && other.ID != user.ID {
			return nil, ErrEmailTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
		user.Email = email
	}
	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		if other, err := s.userRepo.FindByUsername(username); err == nil && other.ID != user.ID {
			return nil, ErrUsernameTaken
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
		user.Username = username
	}
	if input.FullName != nil {
		user.FullName = input.FullName
	}
	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hashed, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, ErrFailedToHashPassword
		}
		user.HashedPassword = string(hashed)
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateUser
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	return user, nil
}

// DeactivateUser disables an account instead of deleting it. Assigned tasks
// keep their assignee reference.
func (s *UserService) DeactivateUser(principal policy.Principal, userID uint64) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	if !policy.CanAccessUser(principal, userID) {
		return ErrPermissionDenied
	}

	user.IsActive = false
	if err := s.userRepo.Update(user); err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
	}

	return nil
}
