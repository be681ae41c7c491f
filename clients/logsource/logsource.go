package logsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"tradewatch/config"
	"tradewatch/internal/tradelog"

	"go.uber.org/zap"
)

// ErrNoEndpoint is returned by Fetch when no log URL is configured.
var ErrNoEndpoint = errors.New("log source endpoint not configured")

// maxBodyBytes caps a single log response.
const maxBodyBytes = 64 << 20

// LogSourceClient fetches the bot's full trade log over HTTP.
type LogSourceClient struct {
	logger     *zap.Logger
	httpClient *http.Client
	url        string
}

func NewLogSourceClient(logger *zap.Logger, cfg *config.Config) *LogSourceClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LogSourceClient{
		logger: logger,
		httpClient: &http.Client{
			Timeout: cfg.LogSource.Timeout,
		},
		url: cfg.LogSource.URL,
	}
}

// URL returns the configured endpoint.
func (c *LogSourceClient) URL() string {
	return c.url
}

// Fetch retrieves the complete log. Non-2xx responses, transport errors and
// bodies that are not a JSON array of entries are all errors.
func (c *LogSourceClient) Fetch(ctx context.Context) (tradelog.Snapshot, error) {
	if c.url == "" {
		return nil, ErrNoEndpoint
	}

	body, err := c.doGet(ctx, c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch trade log: %w", err)
	}

	snapshot, err := tradelog.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("decode trade log: %w", err)
	}

	c.logger.Debug("fetched trade log", zap.Int("entries", len(snapshot)))
	return snapshot, nil
}

// doGet performs a GET request and returns the body of a 2xx response.
func (c *LogSourceClient) doGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, truncate(string(body), 200))
	}

	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
