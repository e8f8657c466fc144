package admin

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/telehealth-client/internal/portal"
	"github.com/careloop/telehealth-client/internal/state"
)

type fakeUsersAPI struct {
	users     []portal.User
	listCalls int
	err       error
	deleted   []string
}

func (f *fakeUsersAPI) ListUsers(ctx context.Context, role portal.Role) ([]portal.User, error) {
	f.listCalls++
	return f.users, f.err
}

func (f *fakeUsersAPI) CreateUser(ctx context.Context, role portal.Role, req portal.UserRequest) (*portal.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u := portal.User{ID: "u-new", Name: req.Name, Email: req.Email, Role: role}
	f.users = append(f.users, u)
	return &u, nil
}

func (f *fakeUsersAPI) UpdateUser(ctx context.Context, role portal.Role, userID string, req portal.UserRequest) (*portal.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &portal.User{ID: userID, Name: req.Name, Role: role}, nil
}

func (f *fakeUsersAPI) DeleteUser(ctx context.Context, role portal.Role, userID string) error {
	f.deleted = append(f.deleted, userID)
	return f.err
}

func TestCreateRefreshesListingIntoStore(t *testing.T) {
	api := &fakeUsersAPI{users: []portal.User{{ID: "u-1", Name: "Dr. Banda", Role: portal.RoleDoctor}}}
	store := state.New()
	svc, err := NewUserService(api, store, nil)
	require.NoError(t, err)

	created, err := svc.Create(context.Background(), portal.RoleDoctor, portal.UserRequest{Name: "Dr. Phiri", Email: "phiri@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u-new", created.ID)
	assert.Equal(t, 1, api.listCalls)

	users := store.AdminUsers()
	require.Len(t, users, 2)
}

func TestDeleteRefreshesListing(t *testing.T) {
	api := &fakeUsersAPI{users: []portal.User{{ID: "u-1", Role: portal.RolePatient}}}
	store := state.New()
	svc, err := NewUserService(api, store, nil)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), portal.RolePatient, "u-2"))
	assert.Equal(t, []string{"u-2"}, api.deleted)
	assert.Equal(t, 1, api.listCalls)
}

func TestMutationErrorSkipsRefresh(t *testing.T) {
	api := &fakeUsersAPI{err: errors.New("forbidden")}
	store := state.New()
	svc, err := NewUserService(api, store, nil)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), portal.RoleAdmin, portal.UserRequest{Name: "x", Email: "x@example.com"})
	require.Error(t, err)
	assert.Zero(t, api.listCalls)
}

func TestNewUserServiceValidation(t *testing.T) {
	_, err := NewUserService(nil, state.New(), nil)
	assert.Error(t, err)

	_, err = NewUserService(&fakeUsersAPI{}, nil, nil)
	assert.Error(t, err)
}
