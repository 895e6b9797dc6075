// Package webhook provides the webhook workflow action: an HTTP call to an
// external URL with an optional JSON payload, headers, and retry on server
// errors.
package webhook

import (
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

	"github.com/mbarbosa/flowgate/pkg/models"
	"github.com/mbarbosa/flowgate/pkg/protocol"
	"github.com/mbarbosa/flowgate/pkg/template"
)

const (
	defaultTimeoutSeconds = 30
	maxResponseBytes      = 1 << 20
)

var (
	// ErrURLRequired is returned when the 'url' config is missing or invalid.
	ErrURLRequired = errors.New("webhook action requires a valid 'url'")
	// ErrMethodInvalid is returned when the configured HTTP method is not recognized.
	ErrMethodInvalid = errors.New("invalid webhook HTTP method")
	// ErrServerError marks a 5xx response that triggered a retry.
	ErrServerError = errors.New("server error during webhook call")
)

// RetryConfig defines retry behavior for webhook calls.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// Config is the typed configuration of a webhook action. URL and payload
// values may contain template expressions rendered against the execution.
type Config struct {
	URL     string
	Method  string
	Payload map[string]any
	Headers map[string]string
	Timeout time.Duration
	Retry   RetryConfig
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (*Factory) ID() string {
	return models.ActionTypeWebhook
}

func (f *Factory) Create(config map[string]any) (protocol.Action, error) {
	rawURL, _ := config["url"].(string)

	method, _ := config["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	payload, _ := config["payload"].(map[string]any)

	headers := make(map[string]string)

	if headersConfig, ok := config["headers"].(map[string]any); ok {
		for k, v := range headersConfig {
			if value, ok := v.(string); ok {
				headers[k] = value
			}
		}
	}

	timeout := defaultTimeoutSeconds * time.Second
	if seconds, ok := toInt(config["timeout_seconds"]); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	retry := RetryConfig{Attempts: 1}

	if retryConfig, ok := config["retry"].(map[string]any); ok {
		if attempts, ok := toInt(retryConfig["attempts"]); ok && attempts > 0 {
			retry.Attempts = attempts
		}

		if delay, ok := toInt(retryConfig["delay"]); ok && delay > 0 {
			retry.Delay = time.Duration(delay) * time.Second
		}
	}

	return &Action{
		Config: Config{
			URL:     rawURL,
			Method:  strings.ToUpper(method),
			Payload: payload,
			Headers: headers,
			Timeout: timeout,
			Retry:   retry,
		},
	}, nil
}

func toInt(value any) (int, bool) {
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Action performs one outbound HTTP call per execution.
type Action struct {
	Config Config
}

func (a *Action) Validate() error {
	parsed, err := url.Parse(a.Config.URL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ErrURLRequired
	}

	switch a.Config.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return fmt.Errorf("method %q: %w", a.Config.Method, ErrMethodInvalid)
	}

	return nil
}

func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("action_type", models.ActionTypeWebhook, "url", a.Config.URL)
	logger.InfoContext(ctx, "Executing webhook action")

	var (
		lastErr error
		resp    *http.Response
	)

	client := &http.Client{Timeout: a.Config.Timeout}

	for attempt := 1; attempt <= a.Config.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "Webhook retry", "attempt", attempt, "max_attempts", a.Config.Retry.Attempts)
			time.Sleep(a.Config.Retry.Delay)
		}

		req, err := a.buildRequest(ctx, executionCtx)
		if err != nil {
			return nil, err
		}

		resp, err = client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("webhook call failed: %w", err)

			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError && attempt < a.Config.Retry.Attempts {
			closeBody(ctx, resp, logger)

			lastErr = fmt.Errorf("status %d: %w", resp.StatusCode, ErrServerError)

			continue
		}

		break
	}

	if resp == nil {
		return nil, fmt.Errorf("all webhook attempts failed, last error: %w", lastErr)
	}

	return a.processResponse(ctx, resp, logger)
}

func (a *Action) buildRequest(ctx context.Context, executionCtx models.ExecutionContext) (*http.Request, error) {
	targetURL, err := template.RenderString(a.Config.URL, &executionCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to render url template: %w", err)
	}

	var body io.Reader = http.NoBody

	if a.Config.Payload != nil {
		rendered, err := renderPayload(a.Config.Payload, &executionCtx)
		if err != nil {
			return nil, err
		}

		encoded, err := json.Marshal(rendered)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}

		body = strings.NewReader(string(encoded))
	}

	req, err := http.NewRequestWithContext(ctx, a.Config.Method, targetURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	for key, value := range a.Config.Headers {
		rendered, err := template.RenderString(value, &executionCtx)
		if err != nil {
			return nil, fmt.Errorf("failed to render header %q template: %w", key, err)
		}

		req.Header.Set(key, rendered)
	}

	return req, nil
}

// renderPayload walks the payload map rendering every string value as a
// template, so nested structures keep their shape.
func renderPayload(payload map[string]any, executionCtx *models.ExecutionContext) (map[string]any, error) {
	rendered := make(map[string]any, len(payload))

	for key, value := range payload {
		switch v := value.(type) {
		case string:
			result, err := template.RenderWithContext(v, executionCtx)
			if err != nil {
				return nil, fmt.Errorf("failed to render payload field %q: %w", key, err)
			}

			rendered[key] = result
		case map[string]any:
			nested, err := renderPayload(v, executionCtx)
			if err != nil {
				return nil, err
			}

			rendered[key] = nested
		default:
			rendered[key] = value
		}
	}

	return rendered, nil
}

func (a *Action) processResponse(ctx context.Context, resp *http.Response, logger *slog.Logger) (any, error) {
	defer closeBody(ctx, resp, logger)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		decoded = string(raw)
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
		"body":        decoded,
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return result, fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	logger.InfoContext(ctx, "Webhook completed", "status_code", resp.StatusCode)

	return result, nil
}

func closeBody(ctx context.Context, resp *http.Response, logger *slog.Logger) {
	if err := resp.Body.Close(); err != nil {
		logger.ErrorContext(ctx, "failed to close response body", "error", err)
	}
}
