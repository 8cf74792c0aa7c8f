package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"board-relay/models"

	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the Source API answers 404.
var ErrNotFound = errors.New("not found")

const userAgent = "board-relay/1.0"

// Client talks to the Source API. Requests are spaced by a rate limiter.
type Client struct {
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient spaces requests at least spacing apart; zero disables spacing.
func NewClient(httpClient *http.Client, spacing time.Duration) *Client {
	limit := rate.Inf
	if spacing > 0 {
		limit = rate.Every(spacing)
	}
	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", url, ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("failed to fetch %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return body, nil
}

// Catalog returns every thread across the catalog's pages.
func (c *Client) Catalog(ctx context.Context, t models.Target) ([]models.CatalogThread, error) {
	body, err := c.get(ctx, t.CatalogURL)
	if err != nil {
		return nil, err
	}
	var pages []models.CatalogPage
	if err := json.Unmarshal(body, &pages); err != nil {
		return nil, fmt.Errorf("failed to decode catalog of %s: %w", t.Directory, err)
	}
	threads := []models.CatalogThread{}
	for _, page := range pages {
		threads = append(threads, page.Threads...)
	}
	return threads, nil
}

// Thread fetches a thread's posts. LastModified is left to the caller,
// which knows it from the catalog.
func (c *Client) Thread(ctx context.Context, t models.Target, threadID string) (models.Thread, error) {
	body, err := c.get(ctx, t.ThreadURLFor(threadID))
	if err != nil {
		return models.Thread{}, err
	}
	var tr models.ThreadResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return models.Thread{}, fmt.Errorf("failed to decode thread %s/%s: %w", t.Directory, threadID, err)
	}
	if len(tr.Posts) == 0 {
		return models.Thread{}, fmt.Errorf("thread %s/%s has no posts", t.Directory, threadID)
	}

	thread := models.Thread{ID: threadID, Posts: make([]models.Post, 0, len(tr.Posts))}
	for _, wp := range tr.Posts {
		p := wp.Post()
		if p.Closed {
			thread.Closed = true
		}
		thread.Posts = append(thread.Posts, p)
	}
	return thread, nil
}

// Media downloads a post's attachment.
func (c *Client) Media(ctx context.Context, t models.Target, p models.Post) ([]byte, error) {
	return c.get(ctx, t.ImageURLFor(p))
}
