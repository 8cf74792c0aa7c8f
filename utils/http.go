package utils

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

type HTTPOption func(*retryablehttp.Client)

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(maxRetries int) HTTPOption {
	return func(client *retryablehttp.Client) {
		client.RetryMax = maxRetries
	}
}

// WithRetryWait sets the backoff bounds between retries.
func WithRetryWait(waitMin, waitMax time.Duration) HTTPOption {
	return func(client *retryablehttp.Client) {
		client.RetryWaitMin = waitMin
		client.RetryWaitMax = waitMax
	}
}

// WithSubsystem tags retry log lines.
func WithSubsystem(name string) HTTPOption {
	return func(client *retryablehttp.Client) {
		client.Logger = retryablehttp.LeveledLogger(LeveledLogger{Subsystem: name})
	}
}

// NewHTTPClient returns a stdlib client that retries connection errors and
// 5xx responses (except 501), bounded by timeout per request.
func NewHTTPClient(timeout time.Duration, options ...HTTPOption) *http.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = cleanhttp.DefaultPooledTransport()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(LeveledLogger{Subsystem: "http"})
	retryClient.CheckRetry = RetryPolicy

	for _, option := range options {
		option(retryClient)
	}

	client := retryClient.StandardClient()
	client.Timeout = timeout
	return client
}

// RetryPolicy wraps retryablehttp.DefaultRetryPolicy but leaves
// 429 Too Many Requests to the caller; the next tick retries.
func RetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if err == nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
