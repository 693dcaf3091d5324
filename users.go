package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// UserRepository is the persistence contract behind the default UserService
type UserRepository interface {
	// Create fails with ErrRecordConflict when the email is taken
	Create(ctx context.Context, user *User) (*User, error)
	// Find returns nil, nil when no user matches
	Find(ctx context.Context, filter UserFilter) (*User, error)
	// Activate fails with ErrRecordNotFound when the user does not exist
	Activate(ctx context.Context, userID int64) (*User, error)
}

type userService struct {
	repo   UserRepository
	hasher PasswordHasher
	logger Logger
}

// NewUserService returns the default UserService backed by repo
func NewUserService(repo UserRepository, hasher PasswordHasher, logger Logger) UserService {
	if hasher == nil {
		hasher = BcryptHasher{}
	}
	if logger == nil {
		logger = defLogger{}
	}
	return &userService{repo: repo, hasher: hasher, logger: logger}
}

func (s *userService) CreateUser(ctx context.Context, payload SignupPayload) (*User, error) {
	email := normalizeEmail(payload.Email)

	existing, err := s.repo.Find(ctx, UserFilter{Email: email})
	if err != nil {
		return nil, wrapInternal(err, "failed to lookup user")
	}
	if existing != nil {
		return nil, nil
	}

	hash, err := s.hasher.HashPassword(payload.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	user, err := s.repo.Create(ctx, &User{
		Email:        email,
		Name:         payload.Name,
		PasswordHash: hash,
		IsActive:     false,
	})
	if err != nil {
		// a concurrent signup took the email between Find and Create
		if IsConflict(err) {
			return nil, nil
		}
		return nil, wrapInternal(err, "failed to create user")
	}

	return user, nil
}

func (s *userService) ValidateUser(ctx context.Context, payload LoginPayload) (*User, error) {
	user, err := s.repo.Find(ctx, UserFilter{Email: normalizeEmail(payload.Email)})
	if err != nil {
		return nil, wrapInternal(err, "failed to lookup user")
	}
	if user == nil {
		return nil, nil
	}

	if err := s.hasher.ComparePasswordAndHash(payload.Password, user.PasswordHash); err != nil {
		if goerrors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		s.logger.Error("ValidateUser compare password error: %s", err)
		return nil, wrapInternal(err, "failed to compare password")
	}

	return user, nil
}

func (s *userService) GetUser(ctx context.Context, filter UserFilter) (*User, error) {
	filter.Email = normalizeEmail(filter.Email)
	user, err := s.repo.Find(ctx, filter)
	if err != nil {
		return nil, wrapInternal(err, "failed to lookup user")
	}
	return user, nil
}

func (s *userService) ActivateUser(ctx context.Context, userID int64) (*User, error) {
	user, err := s.repo.Activate(ctx, userID)
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, wrapInternal(err, "failed to activate user")
	}
	return user, nil
}
