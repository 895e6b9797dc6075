// Package crmapi implements the engine's collaborator interfaces against the
// CRM backend's HTTP API. The engine never touches CRM storage directly; mail
// delivery, task creation, and entity mutation all go through this client.
package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mbarbosa/flowgate/pkg/config"
	"github.com/mbarbosa/flowgate/pkg/protocol"
)

const maxResponseBytes = 1 << 20

// ErrBaseURLRequired is returned when the CRM base URL is missing or invalid.
var ErrBaseURLRequired = errors.New("crm collaborator requires a valid 'base_url'")

// Client calls the CRM backend over HTTP. It implements protocol.Mailer,
// protocol.TaskCreator, and protocol.EntityStore.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewClient(cfg config.CRMConfig, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, ErrBaseURLRequired
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		logger:  logger.With("module", "crm_client"),
	}, nil
}

// Send delivers an email through the CRM's outbound mail endpoint.
func (c *Client) Send(ctx context.Context, message protocol.EmailMessage) error {
	_, err := c.post(ctx, "/emails", message)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	c.logger.InfoContext(ctx, "Email dispatched", "to", message.To, "subject", message.Subject)

	return nil
}

// CreateTask creates a CRM task and returns the identifier assigned by the CRM.
func (c *Client) CreateTask(ctx context.Context, task protocol.Task) (string, error) {
	body, err := c.post(ctx, "/tasks", task)
	if err != nil {
		return "", fmt.Errorf("failed to create task: %w", err)
	}

	var created struct {
		ID string `json:"id"`
	}

	if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
		return "", fmt.Errorf("task response missing id: %q", string(body))
	}

	c.logger.InfoContext(ctx, "Task created", "task_id", created.ID, "title", task.Title)

	return created.ID, nil
}

// UpdateEntity patches a single field on a CRM record.
func (c *Client) UpdateEntity(ctx context.Context, update protocol.EntityUpdate) error {
	path := fmt.Sprintf("/entities/%s/%s", url.PathEscape(update.Entity), url.PathEscape(update.EntityID))

	_, err := c.do(ctx, http.MethodPatch, path, map[string]any{update.Field: update.Value})
	if err != nil {
		return fmt.Errorf("failed to update %s %s: %w", update.Entity, update.EntityID, err)
	}

	c.logger.InfoContext(ctx, "Entity updated",
		"entity", update.Entity,
		"entity_id", update.EntityID,
		"field", update.Field)

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, payload)
}

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("crm request failed: %w", err)
	}

	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.ErrorContext(ctx, "failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read crm response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("crm returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}
