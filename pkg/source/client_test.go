package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "annextube/pkg/errors"
	"annextube/pkg/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(ClientOptions{
		BaseURL:  server.URL,
		Channel:  "UCtest",
		APIKey:   "k",
		PageSize: 2,
	}, logger.NewTestLogger())

	return client, server
}

func TestListPageParsesItems(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/channels/UCtest/videos", r.URL.Path)
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"items": [
				{"id": "v1", "title": "First", "publishedAt": "2023-04-01T10:00:00Z",
				 "durationSeconds": 90, "viewCount": 1200, "license": "cc-by",
				 "tags": ["talk"], "mediaUrl": "http://x/v1.mp4"},
				{"id": "v2", "title": "Second", "publishedAt": "2023-04-02T10:00:00Z",
				 "durationSeconds": 30, "viewCount": 10}
			],
			"nextPageToken": "p2"
		}`))
	})

	items, next, err := client.ListPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "p2", next)

	assert.Equal(t, "v1", items[0].ID)
	assert.Equal(t, "First", items[0].Title)
	assert.Equal(t, 90*time.Second, items[0].Duration)
	assert.Equal(t, int64(1200), items[0].Views)
	assert.Equal(t, "cc-by", items[0].License)
	assert.Equal(t, []string{"talk"}, items[0].Tags)
}

func TestListPagePassesPageToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "p2", r.URL.Query().Get("pageToken"))
		w.Write([]byte(`{"items": []}`))
	})

	items, next, err := client.ListPage(context.Background(), "p2")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, next, "empty next token ends the listing")
}

func TestListPageSkipsUnparseableDescriptors(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [
			{"id": "good", "publishedAt": "2023-04-01T10:00:00Z"},
			{"id": "bad", "publishedAt": "yesterday"},
			{"publishedAt": "2023-04-01T10:00:00Z"}
		]}`))
	})

	items, _, err := client.ListPage(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "good", items[0].ID)
}

func TestAcquireComponentEndpoints(t *testing.T) {
	var paths []string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Write([]byte("payload"))
	})

	ctx := context.Background()
	for _, comp := range []Component{ComponentMedia, ComponentInfo, ComponentSubtitles, ComponentThumbnail, ComponentComments} {
		data, err := client.Acquire(ctx, "v1", comp)
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	}

	assert.Equal(t, []string{
		"/videos/v1/media",
		"/videos/v1",
		"/videos/v1/captions",
		"/videos/v1/thumbnail",
		"/videos/v1/comments",
	}, paths)
}

func TestQuotaExceededRecognized(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "Daily limit exceeded",
			"reason": "quotaExceeded", "resetAt": "2023-04-02T07:00:00Z"}}`))
	})

	_, err := client.Acquire(context.Background(), "v1", ComponentInfo)
	require.Error(t, err)
	require.True(t, errs.IsQuotaExceeded(err))

	var qe *errs.QuotaError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, time.Date(2023, 4, 2, 7, 0, 0, 0, time.UTC), qe.ResetAt)
}

func TestForbiddenWithoutQuotaReasonIsAuthError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error": {"code": 403, "message": "key revoked", "reason": "forbidden"}}`))
	})

	_, err := client.Acquire(context.Background(), "v1", ComponentInfo)
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeAuth, apiErr.Type)
	assert.False(t, errs.IsQuotaExceeded(err))
}

func TestServerErrorsAreTransient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.Acquire(context.Background(), "v1", ComponentInfo)
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeTransient, apiErr.Type)
	assert.True(t, errs.IsRetryable(apiErr.Type))
}

func TestNotFoundIsNotRetryable(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.Acquire(context.Background(), "v1", ComponentSubtitles)
	var apiErr *errs.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, errs.ErrorTypeNotFound, apiErr.Type)
	assert.False(t, errs.IsRetryable(apiErr.Type))
}

func TestComponentFilenames(t *testing.T) {
	assert.Equal(t, "v1.mp4", ComponentMedia.Filename("v1"))
	assert.Equal(t, "v1.info.json", ComponentInfo.Filename("v1"))
	assert.Equal(t, "v1.srt", ComponentSubtitles.Filename("v1"))
	assert.Equal(t, "v1.jpg", ComponentThumbnail.Filename("v1"))
	assert.Equal(t, "v1.comments.json", ComponentComments.Filename("v1"))
}
