package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "annextube/pkg/errors"
	"annextube/pkg/logger"
)

// Client is an HTTP implementation of Lister and Acquirer against the
// platform's data API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	channel    string
	apiKey     string
	pageSize   int
	logger     logger.Logger
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL  string
	Channel  string
	APIKey   string
	PageSize int
	Timeout  time.Duration
}

// NewClient creates a client for one channel.
func NewClient(opts ClientOptions, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		channel:    opts.Channel,
		apiKey:     opts.APIKey,
		pageSize:   opts.PageSize,
		logger:     log,
	}
}

// ListPage fetches one page of the channel's videos.
func (c *Client) ListPage(ctx context.Context, pageToken string) ([]Video, string, error) {
	endpoint := fmt.Sprintf("%s/channels/%s/videos?limit=%d", c.baseURL, url.PathEscape(c.channel), c.pageSize)
	if pageToken != "" {
		endpoint += "&pageToken=" + url.QueryEscape(pageToken)
	}

	var page listResponse
	if err := c.getJSON(ctx, endpoint, &page); err != nil {
		return nil, "", fmt.Errorf("failed to list channel videos: %w", err)
	}

	items := make([]Video, 0, len(page.Items))
	for _, res := range page.Items {
		v, err := res.toVideo()
		if err != nil {
			c.logger.WarnWithFields("skipping unparseable video descriptor", map[string]interface{}{
				"id":    res.ID,
				"error": err.Error(),
			})
			continue
		}
		items = append(items, v)
	}

	c.logger.DebugWithFields("listed video page", map[string]interface{}{
		"channel":  c.channel,
		"count":    len(items),
		"has_next": page.NextPageToken != "",
	})

	return items, page.NextPageToken, nil
}

// Acquire fetches one component of one video.
func (c *Client) Acquire(ctx context.Context, videoID string, component Component) ([]byte, error) {
	var endpoint string
	switch component {
	case ComponentMedia:
		endpoint = fmt.Sprintf("%s/videos/%s/media", c.baseURL, url.PathEscape(videoID))
	case ComponentInfo:
		endpoint = fmt.Sprintf("%s/videos/%s", c.baseURL, url.PathEscape(videoID))
	case ComponentSubtitles:
		endpoint = fmt.Sprintf("%s/videos/%s/captions", c.baseURL, url.PathEscape(videoID))
	case ComponentThumbnail:
		endpoint = fmt.Sprintf("%s/videos/%s/thumbnail", c.baseURL, url.PathEscape(videoID))
	case ComponentComments:
		endpoint = fmt.Sprintf("%s/videos/%s/comments", c.baseURL, url.PathEscape(videoID))
	default:
		return nil, errs.New(errs.ErrorTypeFatal, fmt.Sprintf("unknown component %q", component))
	}

	start := time.Now()
	data, err := c.getBytes(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	c.logger.DebugWithFields("component acquired", map[string]interface{}{
		"video":       videoID,
		"component":   string(component),
		"size_bytes":  len(data),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return data, nil
}

// getJSON performs a GET request and decodes the JSON response.
func (c *Client) getJSON(ctx context.Context, endpoint string, target interface{}) error {
	body, err := c.getBytes(ctx, endpoint)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          endpoint,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errs.New(errs.ErrorTypeParsing, fmt.Sprintf("failed to parse JSON: %v", err))
	}

	return nil
}

// getBytes performs a GET request and returns the raw body.
func (c *Client) getBytes(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeFatal, fmt.Sprintf("failed to create request: %v", err))
	}
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
	req.Header.Set("Accept", "application/json, */*")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":      endpoint,
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.New(errs.ErrorTypeTransient, fmt.Sprintf("network error: %v", err))
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"url":      endpoint,
		"status":   resp.StatusCode,
		"duration": duration,
	})

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.NewWithCode(errs.ErrorTypeTransient, resp.StatusCode,
			fmt.Sprintf("failed to read response body: %v", err))
	}

	return body, nil
}

// statusError maps a non-200 response to a classified error. A 403 carrying
// the quotaExceeded reason becomes the distinguished capacity signal.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch resp.StatusCode {
	case http.StatusForbidden:
		var envelope apiError
		if json.Unmarshal(body, &envelope) == nil && envelope.Error.Reason == "quotaExceeded" {
			qe := &errs.QuotaError{Message: envelope.Error.Message}
			if envelope.Error.ResetAt != "" {
				if reset, err := time.Parse(time.RFC3339, envelope.Error.ResetAt); err == nil {
					qe.ResetAt = reset
				}
			}
			return qe
		}
		return errs.NewWithCode(errs.ErrorTypeAuth, resp.StatusCode, "access forbidden")
	case http.StatusUnauthorized:
		return errs.NewWithCode(errs.ErrorTypeAuth, resp.StatusCode, "authentication required")
	case http.StatusNotFound:
		return errs.NewWithCode(errs.ErrorTypeNotFound, resp.StatusCode, "resource not found")
	case http.StatusTooManyRequests:
		return errs.NewWithCode(errs.ErrorTypeTransient, resp.StatusCode, "too many requests")
	default:
		if resp.StatusCode >= 500 {
			return errs.NewWithCode(errs.ErrorTypeTransient, resp.StatusCode,
				fmt.Sprintf("server returned status %d", resp.StatusCode))
		}
		return errs.NewWithCode(errs.ErrorTypeFatal, resp.StatusCode,
			fmt.Sprintf("unexpected status %d", resp.StatusCode))
	}
}

// toVideo converts the wire descriptor into the engine's model.
func (r videoResource) toVideo() (Video, error) {
	if r.ID == "" {
		return Video{}, fmt.Errorf("descriptor missing id")
	}

	published, err := time.Parse(time.RFC3339, r.PublishedAt)
	if err != nil {
		return Video{}, fmt.Errorf("bad publishedAt %q: %w", r.PublishedAt, err)
	}

	return Video{
		ID:           r.ID,
		Title:        r.Title,
		PublishedAt:  published,
		Duration:     time.Duration(r.DurationSeconds) * time.Second,
		Views:        r.ViewCount,
		License:      r.License,
		Tags:         r.Tags,
		MediaURL:     r.MediaURL,
		ThumbnailURL: r.ThumbnailURL,
	}, nil
}
