// Package source talks to the remote video platform: listing a channel's
// videos and acquiring the per-video components the backup archives.
package source

import (
	"context"
	"time"
)

// Component identifies one archivable part of a video.
type Component string

const (
	ComponentMedia     Component = "media"
	ComponentInfo      Component = "info"
	ComponentSubtitles Component = "subtitles"
	ComponentThumbnail Component = "thumbnail"
	ComponentComments  Component = "comments"
)

// Filename returns the file name a component is stored under inside the
// video's directory.
func (c Component) Filename(videoID string) string {
	switch c {
	case ComponentMedia:
		return videoID + ".mp4"
	case ComponentInfo:
		return videoID + ".info.json"
	case ComponentSubtitles:
		return videoID + ".srt"
	case ComponentThumbnail:
		return videoID + ".jpg"
	case ComponentComments:
		return videoID + ".comments.json"
	default:
		return videoID + "." + string(c)
	}
}

// Video is one candidate work unit as discovered by a listing pass.
type Video struct {
	ID          string
	Rank        int // discovery order, 0-based
	Title       string
	PublishedAt time.Time
	Duration    time.Duration
	Views       int64
	License     string
	Tags        []string

	MediaURL     string
	ThumbnailURL string
}

// Lister pages through a channel's videos in discovery order. The sequence
// is finite and not restartable; each run re-lists from the remote.
type Lister interface {
	// ListPage fetches one page. An empty pageToken requests the first
	// page; an empty next token means the listing is exhausted.
	ListPage(ctx context.Context, pageToken string) (items []Video, next string, err error)
}

// Acquirer fetches one component of one video. A capacity-exhausted
// condition is reported as *errors.QuotaError, distinguished from generic
// failures so the quota tracker can act on it.
type Acquirer interface {
	Acquire(ctx context.Context, videoID string, component Component) ([]byte, error)
}
