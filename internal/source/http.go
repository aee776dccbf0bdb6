package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"valuation-catalog-api/internal/model"
)

// RetryConfig defines retry behavior
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
}

// DefaultRetryConfig returns the retry policy used for catalog downloads
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		Multiplier:     2.0,
	}
}

// HTTPConfig configures an HTTPSource. Zero fields take defaults.
type HTTPConfig struct {
	Client  *http.Client
	Limiter *rate.Limiter
	Retry   *RetryConfig
	Logger  *slog.Logger
}

// HTTPSource downloads a published catalog export
type HTTPSource struct {
	url         string
	httpClient  *http.Client
	limiter     *rate.Limiter
	retryConfig RetryConfig
	logger      *slog.Logger
}

// NewHTTPSource creates an HTTP row source for rawURL
func NewHTTPSource(rawURL string, cfg HTTPConfig) *HTTPSource {
	s := &HTTPSource{
		url:         rawURL,
		httpClient:  cfg.Client,
		limiter:     cfg.Limiter,
		retryConfig: DefaultRetryConfig(),
		logger:      cfg.Logger,
	}
	if s.httpClient == nil {
		s.httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if s.limiter == nil {
		s.limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if cfg.Retry != nil {
		s.retryConfig = *cfg.Retry
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

func (s *HTTPSource) String() string {
	return "http:" + s.url
}

// FetchRows implements catalog.RowFetcher
func (s *HTTPSource) FetchRows(ctx context.Context) ([]model.RawRow, error) {
	body, contentType, err := s.fetchWithRetry(ctx)
	if err != nil {
		return nil, err
	}

	format, err := s.format(contentType)
	if err != nil {
		return nil, err
	}

	rows, err := Decode(bytes.NewReader(body), format)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.url, err)
	}
	return rows, nil
}

// format prefers the URL extension and falls back to the response media type
func (s *HTTPSource) format(contentType string) (Format, error) {
	if u, err := url.Parse(s.url); err == nil {
		if f, err := FormatFromPath(u.Path); err == nil {
			return f, nil
		}
	}
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "text/csv", "application/csv":
		return FormatCSV, nil
	case "application/json", "text/json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s (%s)", ErrUnsupportedFormat, s.url, contentType)
}

// fetchWithRetry performs the GET, retrying transport errors, 429 and 5xx
func (s *HTTPSource) fetchWithRetry(ctx context.Context) ([]byte, string, error) {
	backoff := s.retryConfig.InitialBackoff

	for attempt := 0; attempt <= s.retryConfig.MaxRetries; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json, text/csv")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < s.retryConfig.MaxRetries && ctx.Err() == nil {
				s.logger.Warn("catalog download failed, retrying", "url", s.url, "attempt", attempt+1, "error", err)
				if err := sleep(ctx, backoff); err != nil {
					return nil, "", err
				}
				backoff = s.nextBackoff(backoff)
				continue
			}
			return nil, "", fmt.Errorf("request failed after %d attempts: %w", attempt+1, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode == http.StatusOK {
			return body, resp.Header.Get("Content-Type"), nil
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			if attempt < s.retryConfig.MaxRetries {
				s.logger.Warn("catalog download returned retryable status", "url", s.url, "status", resp.StatusCode, "attempt", attempt+1)
				if err := sleep(ctx, backoff); err != nil {
					return nil, "", err
				}
				backoff = s.nextBackoff(backoff)
				continue
			}
		}

		return nil, "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	return nil, "", fmt.Errorf("max retries exceeded")
}

func (s *HTTPSource) nextBackoff(current time.Duration) time.Duration {
	return min(time.Duration(float64(current)*s.retryConfig.Multiplier), s.retryConfig.MaxBackoff)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
