// Package kusto executes KQL against the Application Insights query API and
// maps provider failures onto the domain error taxonomy.
package kusto

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bcwatch/kqlbridge/internal/domain"
	logpkg "github.com/bcwatch/kqlbridge/internal/logger"
	"github.com/bcwatch/kqlbridge/internal/metrics"
)

// maxErrorBodyBytes bounds how much of an error response is read for diagnostics.
const maxErrorBodyBytes = 64 << 10

// Client executes KQL queries against one Application Insights app.
type Client struct {
	endpoint string
	appID    string
	client   *http.Client
	logger   *zap.Logger
}

// Config holds the analytics backend settings.
type Config struct {
	Endpoint string // e.g. https://api.applicationinsights.io
	AppID    string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewClient creates an Application Insights query client.
func NewClient(cfg *Config) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		appID:    cfg.AppID,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
	}
}

// WithHTTPClient overrides the HTTP client. Test hook.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.client = hc
	return c
}

// queryRequest is the API request body.
type queryRequest struct {
	Query string `json:"query"`
}

// queryResponse mirrors the API's tabular response shape.
type queryResponse struct {
	Tables []struct {
		Name    string `json:"name"`
		Columns []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"columns"`
		Rows [][]any `json:"rows"`
	} `json:"tables"`
}

// apiError is the error body the API returns on failures.
type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Execute posts the KQL to the query API with the given bearer token and
// returns the first result table. Failures map onto domain sentinels:
// 401/403 → ErrAuthFailed, 400 → ErrQuerySyntax, 429 → ErrRateLimited,
// anything else → ErrTransport.
func (c *Client) Execute(ctx context.Context, kql, accessToken string) (*domain.TableResult, error) {
	body, err := json.Marshal(queryRequest{Query: kql})
	if err != nil {
		return nil, fmt.Errorf("encode query request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/apps/%s/query", c.endpoint, c.appID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build query request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		metrics.TransportRequestDuration.WithLabelValues("error").Observe(duration.Seconds())
		metrics.TransportErrorsTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("query request: %v: %w", err, domain.ErrTransport)
	}
	defer func() { _ = resp.Body.Close() }()

	metrics.TransportRequestDuration.WithLabelValues(strconv.Itoa(resp.StatusCode)).Observe(duration.Seconds())

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	var parsed queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		metrics.TransportErrorsTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("decode query response: %v: %w", err, domain.ErrTransport)
	}
	if len(parsed.Tables) == 0 {
		metrics.TransportErrorsTotal.WithLabelValues("transport").Inc()
		return nil, fmt.Errorf("query response has no tables: %w", domain.ErrTransport)
	}

	table := parsed.Tables[0]
	result := &domain.TableResult{
		Columns: make([]string, len(table.Columns)),
		Rows:    table.Rows,
	}
	for i, col := range table.Columns {
		result.Columns[i] = col.Name
	}

	// Request-scoped logger (carries the request_id) when the orchestrator
	// put one on the context; the client's own logger otherwise.
	logpkg.FromContextOr(ctx, c.logger).Debug("Query executed",
		zap.Int("columns", len(result.Columns)),
		zap.Int("rows", len(result.Rows)),
		zap.Duration("latency", duration),
	)
	return result, nil
}

// statusError maps a non-200 response onto the domain error taxonomy,
// preserving the provider's diagnostic message.
func (c *Client) statusError(resp *http.Response) error {
	detail := extractDetail(resp.Body)

	var sentinel error
	var category string
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel, category = domain.ErrAuthFailed, "auth"
	case http.StatusBadRequest:
		sentinel, category = domain.ErrQuerySyntax, "syntax"
	case http.StatusTooManyRequests:
		sentinel, category = domain.ErrRateLimited, "rate_limit"
	default:
		sentinel, category = domain.ErrTransport, "transport"
	}
	metrics.TransportErrorsTotal.WithLabelValues(category).Inc()

	if detail != "" {
		return fmt.Errorf("query API error %d: %s: %w", resp.StatusCode, detail, sentinel)
	}
	return fmt.Errorf("query API error %d: %w", resp.StatusCode, sentinel)
}

// extractDetail pulls a human-readable message out of the API error body.
func extractDetail(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, maxErrorBodyBytes))
	if err != nil || len(raw) == 0 {
		return ""
	}

	var parsed apiError
	if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error.Message != "" {
		if parsed.Error.Code != "" {
			return parsed.Error.Code + ": " + parsed.Error.Message
		}
		return parsed.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
