package identity

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// AdminClient calls the identity provider's admin API with the service key.
type AdminClient struct {
	client *resty.Client
	logger *slog.Logger
}

// NewAdminClient creates a client for baseURL.
func NewAdminClient(baseURL, serviceKey string, timeout time.Duration, logger *slog.Logger) *AdminClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(200*time.Millisecond).
		SetAuthToken(serviceKey).
		SetHeader("apikey", serviceKey).
		SetHeader("Accept", "application/json")

	return &AdminClient{client: client, logger: logger.With("component", "identity_admin")}
}

// SignOut revokes every session of subject at the identity provider.
func (c *AdminClient) SignOut(ctx context.Context, subject uuid.UUID) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("sub", subject.String()).
		Post("/admin/users/{sub}/logout")
	if err != nil {
		return fmt.Errorf("identity sign-out: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("identity sign-out: status %d", resp.StatusCode())
	}
	c.logger.Info("Signed out principal at identity provider", "sub", subject)
	return nil
}

type createUserRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

type userResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

// CreateUser registers a confirmed email/password account and returns its subject id.
func (c *AdminClient) CreateUser(ctx context.Context, email, password string) (uuid.UUID, error) {
	var created userResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(createUserRequest{Email: email, Password: password, EmailConfirm: true}).
		SetResult(&created).
		Post("/admin/users")
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity create user: %w", err)
	}
	if resp.IsError() {
		return uuid.Nil, fmt.Errorf("identity create user: status %d", resp.StatusCode())
	}
	if created.ID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("identity create user: response carries no user id")
	}
	c.logger.Info("Created identity account", "sub", created.ID, "email", created.Email)
	return created.ID, nil
}

// DeleteUser removes an account. A missing account counts as deleted.
func (c *AdminClient) DeleteUser(ctx context.Context, subject uuid.UUID) error {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("sub", subject.String()).
		Delete("/admin/users/{sub}")
	if err != nil {
		return fmt.Errorf("identity delete user: %w", err)
	}
	if resp.IsError() && resp.StatusCode() != http.StatusNotFound {
		return fmt.Errorf("identity delete user: status %d", resp.StatusCode())
	}
	c.logger.Info("Deleted identity account", "sub", subject)
	return nil
}
