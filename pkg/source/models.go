package source

// listResponse is one page of a channel's videos.
type listResponse struct {
	Items         []videoResource `json:"items"`
	NextPageToken string          `json:"nextPageToken"`
}

// videoResource is the wire shape of one video descriptor.
type videoResource struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	PublishedAt     string   `json:"publishedAt"` // RFC 3339
	DurationSeconds int64    `json:"durationSeconds"`
	ViewCount       int64    `json:"viewCount"`
	License         string   `json:"license"`
	Tags            []string `json:"tags"`
	MediaURL        string   `json:"mediaUrl"`
	ThumbnailURL    string   `json:"thumbnailUrl"`
}

// apiError is the error envelope the API returns on non-2xx responses.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
		ResetAt string `json:"resetAt"` // RFC 3339, present on quotaExceeded
	} `json:"error"`
}
