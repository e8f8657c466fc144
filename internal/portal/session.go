package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Status checks the cookie session once, typically at startup. An
// unauthenticated session is not an error; the flag and user are simply
// empty.
func (c *Client) Status(ctx context.Context) (*AuthStatus, error) {
	data, err := c.invoke(ctx, http.MethodGet, "/auth/status", nil, nil)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized {
			c.authenticated.Store(false)
			return &AuthStatus{}, nil
		}
		return nil, err
	}
	status, err := decodeJSON[AuthStatus](data)
	if err != nil {
		return nil, err
	}
	c.authenticated.Store(status.Authenticated)
	return status, nil
}

// Login establishes the cookie session. The server sets the session cookie;
// the client keeps only the authenticated sentinel.
func (c *Client) Login(ctx context.Context, email, password string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New("portal: email and password required")
	}
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, fmt.Errorf("portal: marshal login body: %w", err)
	}
	data, err := c.invoke(ctx, http.MethodPost, "/auth/login", nil, body)
	if err != nil {
		return nil, err
	}
	user, err := decodeJSON[User](data)
	if err != nil {
		return nil, err
	}
	c.authenticated.Store(true)
	return user, nil
}

// Logout tears down the session server-side and clears the sentinel.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.invoke(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.authenticated.Store(false)
	return err
}
