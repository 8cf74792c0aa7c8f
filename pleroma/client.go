package pleroma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"board-relay/models"

	"golang.org/x/time/rate"
)

// ErrUnauthorized is returned when the bearer token is rejected.
var ErrUnauthorized = errors.New("credentials rejected")

// notificationPage is the feed page size the API allows at most.
const notificationPage = 40

// APIError is a non-2xx answer from the Posting API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("posting api returned %d: %s", e.StatusCode, e.Body)
}

// Client is a Pleroma/Mastodon API client covering what the relay uses.
type Client struct {
	base    string
	token   string
	http    *http.Client
	uploads *rate.Limiter
}

type Option func(*Client)

// WithUploadInterval spaces media uploads at least d apart.
func WithUploadInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.uploads = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

func NewClient(instance, token string, httpClient *http.Client, opts ...Option) *Client {
	c := &Client{
		base:    strings.TrimSuffix(instance, "/"),
		token:   token,
		http:    httpClient,
		uploads: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, header http.Header, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response of %s: %w", path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: truncate(string(data), 256)}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ErrUnauthorized, apiErr)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response of %s: %w", path, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// VerifyCredentials returns the account the token belongs to.
func (c *Client) VerifyCredentials(ctx context.Context) (models.Account, error) {
	var acct models.Account
	err := c.do(ctx, http.MethodGet, "/api/v1/accounts/verify_credentials", "", nil, nil, &acct)
	if err != nil {
		return models.Account{}, err
	}
	if acct.ID == "" {
		return models.Account{}, fmt.Errorf("verify_credentials returned no account")
	}
	return acct, nil
}

// UploadMedia uploads one attachment and returns its media id.
func (c *Client) UploadMedia(ctx context.Context, filename string, data []byte) (string, error) {
	if err := c.uploads.Wait(ctx); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close multipart body: %w", err)
	}

	var media struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/v1/media", w.FormDataContentType(), bytes.NewReader(buf.Bytes()), nil, &media); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", filename, err)
	}
	if media.ID == "" {
		return "", fmt.Errorf("upload of %s returned no media id", filename)
	}
	return media.ID, nil
}

// StatusParams describes a status to create.
type StatusParams struct {
	Text           string
	Visibility     string
	Sensitive      bool
	MediaIDs       []string
	InReplyToID    string
	IdempotencyKey string
}

type statusBody struct {
	Status      string   `json:"status"`
	Visibility  string   `json:"visibility,omitempty"`
	Sensitive   bool     `json:"sensitive"`
	MediaIDs    []string `json:"media_ids,omitempty"`
	InReplyToID string   `json:"in_reply_to_id,omitempty"`
	ContentType string   `json:"content_type"`
}

// CreateStatus posts a status with HTML content.
func (c *Client) CreateStatus(ctx context.Context, p StatusParams) (models.Status, error) {
	body, err := json.Marshal(statusBody{
		Status:      p.Text,
		Visibility:  p.Visibility,
		Sensitive:   p.Sensitive,
		MediaIDs:    p.MediaIDs,
		InReplyToID: p.InReplyToID,
		ContentType: "text/html",
	})
	if err != nil {
		return models.Status{}, fmt.Errorf("failed to encode status: %w", err)
	}
	header := http.Header{}
	if p.IdempotencyKey != "" {
		header.Set("Idempotency-Key", p.IdempotencyKey)
	}

	var st models.Status
	if err := c.do(ctx, http.MethodPost, "/api/v1/statuses", "application/json", bytes.NewReader(body), header, &st); err != nil {
		return models.Status{}, fmt.Errorf("failed to create status: %w", err)
	}
	if st.ID == "" {
		return models.Status{}, fmt.Errorf("create status returned no id")
	}
	return st, nil
}

// Notifications returns notifications newer than sinceID, newest first
// as the API orders them.
func (c *Client) Notifications(ctx context.Context, sinceID string) ([]models.Notification, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(notificationPage))
	if sinceID != "" {
		q.Set("since_id", sinceID)
	}
	var out []models.Notification
	if err := c.do(ctx, http.MethodGet, "/api/v1/notifications?"+q.Encode(), "", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	for i := range out {
		out[i].Kind = models.ParseNotificationKind(out[i].Type)
	}
	return out, nil
}

// Field is a profile metadata field.
type Field struct {
	Name  string
	Value string
}

// UpdateProfileFields replaces the account's profile metadata fields.
func (c *Client) UpdateProfileFields(ctx context.Context, fields []Field) error {
	form := url.Values{}
	for i, f := range fields {
		form.Set(fmt.Sprintf("fields_attributes[%d][name]", i), f.Name)
		form.Set(fmt.Sprintf("fields_attributes[%d][value]", i), f.Value)
	}
	err := c.do(ctx, http.MethodPatch, "/api/v1/accounts/update_credentials", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), nil, nil)
	if err != nil {
		return fmt.Errorf("failed to update profile fields: %w", err)
	}
	return nil
}
