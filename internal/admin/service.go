package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/internal/state"
	"github.com/careloop/telehealth-client/pkg/logging"
)

// UsersAPI is the slice of the portal client the user-management flows need.
type UsersAPI interface {
	ListUsers(ctx context.Context, role portal.Role) ([]portal.User, error)
	CreateUser(ctx context.Context, role portal.Role, req portal.UserRequest) (*portal.User, error)
	UpdateUser(ctx context.Context, role portal.Role, userID string, req portal.UserRequest) (*portal.User, error)
	DeleteUser(ctx context.Context, role portal.Role, userID string) error
}

// UserService wraps admin user management. Every mutation is followed by a
// re-fetch of the role's listing into the state store; the server copy is
// what the store ends up holding, never the locally-built request.
type UserService struct {
	api    UsersAPI
	store  *state.Store
	logger *logging.Logger
}

// NewUserService creates the admin user-management service.
func NewUserService(api UsersAPI, store *state.Store, logger *logging.Logger) (*UserService, error) {
	if api == nil {
		return nil, errors.New("admin: users api required")
	}
	if store == nil {
		return nil, errors.New("admin: state store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &UserService{api: api, store: store, logger: logger.Component("admin")}, nil
}

// Refresh fetches the role's user listing into the store.
func (s *UserService) Refresh(ctx context.Context, role portal.Role) error {
	users, err := s.api.ListUsers(ctx, role)
	if err != nil {
		return fmt.Errorf("admin: list %s users: %w", role, err)
	}
	s.store.SetAdminUsers(users)
	return nil
}

// Create registers a new account, then refreshes the listing.
func (s *UserService) Create(ctx context.Context, role portal.Role, req portal.UserRequest) (*portal.User, error) {
	user, err := s.api.CreateUser(ctx, role, req)
	if err != nil {
		return nil, fmt.Errorf("admin: create %s: %w", role, err)
	}
	s.logger.Info("user created", "role", role, "user_id", user.ID)
	if err := s.Refresh(ctx, role); err != nil {
		return user, err
	}
	return user, nil
}

// Update replaces an account's profile, then refreshes the listing.
func (s *UserService) Update(ctx context.Context, role portal.Role, userID string, req portal.UserRequest) (*portal.User, error) {
	user, err := s.api.UpdateUser(ctx, role, userID, req)
	if err != nil {
		return nil, fmt.Errorf("admin: update %s %s: %w", role, userID, err)
	}
	s.logger.Info("user updated", "role", role, "user_id", userID)
	if err := s.Refresh(ctx, role); err != nil {
		return user, err
	}
	return user, nil
}

// Delete removes an account, then refreshes the listing.
func (s *UserService) Delete(ctx context.Context, role portal.Role, userID string) error {
	if err := s.api.DeleteUser(ctx, role, userID); err != nil {
		return fmt.Errorf("admin: delete %s %s: %w", role, userID, err)
	}
	s.logger.Info("user deleted", "role", role, "user_id", userID)
	return s.Refresh(ctx, role)
}
