package backup

import (
	"time"

	"annextube/pkg/config"
	"annextube/pkg/errors"
	"annextube/pkg/source"
)

// filter rejects discovered videos before they become work units.
//
// The dateStart bound is only enforced on established archives: a fresh
// archive backfills its full history regardless of the configured start
// date, while subsequent incremental runs use the bound to avoid
// re-walking old history.
type filter struct {
	dateStart    time.Time
	dateEnd      time.Time
	minDuration  time.Duration
	maxDuration  time.Duration
	minViews     int64
	license      string
	tags         []string
	freshArchive bool
}

func newFilter(cfg *config.FilterConfig, freshArchive bool) (*filter, error) {
	f := &filter{
		minDuration:  cfg.MinDuration,
		maxDuration:  cfg.MaxDuration,
		minViews:     cfg.MinViews,
		license:      cfg.License,
		tags:         cfg.Tags,
		freshArchive: freshArchive,
	}

	var err error
	if f.dateStart, err = cfg.DateStartTime(); err != nil {
		return nil, errors.New(errors.ErrorTypeFatal, "invalid date-start filter: "+err.Error())
	}
	if f.dateEnd, err = cfg.DateEndTime(); err != nil {
		return nil, errors.New(errors.ErrorTypeFatal, "invalid date-end filter: "+err.Error())
	}
	return f, nil
}

// Accept reports whether v passes every configured predicate.
func (f *filter) Accept(v source.Video) bool {
	if !f.dateStart.IsZero() && !f.freshArchive && v.PublishedAt.Before(f.dateStart) {
		return false
	}
	if !f.dateEnd.IsZero() && v.PublishedAt.After(f.dateEnd) {
		return false
	}
	if f.minDuration > 0 && v.Duration < f.minDuration {
		return false
	}
	if f.maxDuration > 0 && v.Duration > f.maxDuration {
		return false
	}
	if f.minViews > 0 && v.Views < f.minViews {
		return false
	}
	if f.license != "" && v.License != f.license {
		return false
	}
	if len(f.tags) > 0 && !hasAnyTag(v.Tags, f.tags) {
		return false
	}
	return true
}

func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}
