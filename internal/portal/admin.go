package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UserRequest creates or updates a portal account through the admin API.
type UserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
	Password  string `json:"password,omitempty"`
	NRC       string `json:"nrc,omitempty"`
	Specialty string `json:"specialty,omitempty"`
	AdminTier string `json:"admin_tier,omitempty"`
}

func (r UserRequest) validate() error {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Email) == "" {
		return errors.New("portal: user name and email required")
	}
	return nil
}

func adminUsersPath(role Role) (string, error) {
	switch role {
	case RolePatient, RoleDoctor, RoleAdmin:
		return fmt.Sprintf("/admin/users/%s", role), nil
	default:
		return "", fmt.Errorf("portal: unknown user role %q", role)
	}
}

// ListUsers fetches all accounts of one role.
func (c *Client) ListUsers(ctx context.Context, role Role) ([]User, error) {
	path, err := adminUsersPath(role)
	if err != nil {
		return nil, err
	}
	data, err := c.invoke(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[User](data)
}

// CreateUser registers a new account of the given role.
func (c *Client) CreateUser(ctx context.Context, role Role, req UserRequest) (*User, error) {
	path, err := adminUsersPath(role)
	if err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal user request: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[User](data)
}

// UpdateUser replaces an account's profile fields.
func (c *Client) UpdateUser(ctx context.Context, role Role, userID string, req UserRequest) (*User, error) {
	path, err := adminUsersPath(role)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(userID) == "" {
		return nil, errors.New("portal: user id required")
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("portal: marshal user request: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPut, fmt.Sprintf("%s/%s", path, userID), nil, body)
	if err != nil {
		return nil, err
	}
	return decodeJSON[User](data)
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, role Role, userID string) error {
	path, err := adminUsersPath(role)
	if err != nil {
		return err
	}
	if strings.TrimSpace(userID) == "" {
		return errors.New("portal: user id required")
	}
	_, err = c.invoke(ctx, http.MethodDelete, fmt.Sprintf("%s/%s", path, userID), nil, nil)
	return err
}

// GetDashboard fetches the admin dashboard snapshot.
func (c *Client) GetDashboard(ctx context.Context) (*DashboardStats, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/admin/dashboard", nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeJSON[DashboardStats](data)
}
