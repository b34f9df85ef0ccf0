package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aakarshsak/ecom-price-tracker/pkg/config"
)

// ProfileClient notifies the user-profile service that an account was
// registered so it can create the matching profile record. The call is best
// effort; registration never fails because the profile service is down.
type ProfileClient struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewProfileClient builds a client from configuration. An empty base URL
// yields a disabled client whose calls are no-ops.
func NewProfileClient(cfg config.ProfileConfig, logger *zap.Logger) *ProfileClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ProfileClient{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type createProfilePayload struct {
	AccountID string `json:"account_id"`
	Email     string `json:"email"`
}

// CreateProfile asks the profile service to provision a profile for the
// newly registered account.
func (c *ProfileClient) CreateProfile(ctx context.Context, accountID, email string) error {
	if c == nil || c.baseURL == "" {
		return nil
	}

	body, err := json.Marshal(createProfilePayload{AccountID: accountID, Email: email})
	if err != nil {
		return fmt.Errorf("marshal profile payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/internal/profiles", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("call profile service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("profile service returned status %d", resp.StatusCode)
	}
	return nil
}
