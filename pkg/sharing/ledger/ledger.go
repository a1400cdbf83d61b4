// Package ledger derives owner-facing statistics from a link's access log.
package ledger

import (
	"sort"
	"time"

	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
)

type Bucket struct {
	Start     time.Time `json:"start"`
	Successes int64     `json:"successes"`
	Failures  int64     `json:"failures"`
}

type Stats struct {
	ShareLinkID    string     `json:"share_link_id"`
	IsActive       bool       `json:"is_active"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	AccessCount    int64      `json:"access_count"`
	MaxAccessCount int64      `json:"max_access_count"`

	TotalAttempts    int64                          `json:"total_attempts"`
	SuccessCount     int64                          `json:"success_count"`
	FailureCount     int64                          `json:"failure_count"`
	FailuresByReason map[models.FailureReason]int64 `json:"failures_by_reason"`
	DistinctSources  int                            `json:"distinct_sources"`
	SuccessRate      float64                        `json:"success_rate"`

	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	LastAttemptAt  *time.Time `json:"last_attempt_at,omitempty"`

	BucketSize time.Duration `json:"bucket_size"`
	Buckets    []Bucket      `json:"buckets"`
}

// Summarize aggregates entries, which must all belong to link. Buckets are
// aligned to multiples of bucketSize in UTC and only non-empty buckets are
// returned, oldest first.
func Summarize(link models.ShareLink, entries []models.AccessLogEntry, bucketSize time.Duration) Stats {
	if bucketSize <= 0 {
		bucketSize = time.Hour
	}

	rc := Stats{
		ShareLinkID:      link.ID,
		IsActive:         link.IsActive,
		ExpiresAt:        link.ExpiresAt,
		AccessCount:      link.AccessCount,
		MaxAccessCount:   link.MaxAccessCount,
		FailuresByReason: map[models.FailureReason]int64{},
		LastAccessedAt:   link.LastAccessedAt,
		BucketSize:       bucketSize,
		Buckets:          []Bucket{},
	}

	sources := map[string]struct{}{}
	buckets := map[int64]*Bucket{}

	for i := range entries {
		e := entries[i]
		rc.TotalAttempts++
		sources[e.SourceAddress] = struct{}{}

		start := e.Timestamp.UTC().Truncate(bucketSize)
		b, ok := buckets[start.UnixNano()]
		if !ok {
			b = &Bucket{Start: start}
			buckets[start.UnixNano()] = b
		}

		if e.Outcome == models.Success {
			rc.SuccessCount++
			b.Successes++
			if rc.LastAccessedAt == nil || e.Timestamp.After(*rc.LastAccessedAt) {
				ts := e.Timestamp
				rc.LastAccessedAt = &ts
			}
		} else {
			rc.FailureCount++
			b.Failures++
			if e.FailureReason != nil {
				rc.FailuresByReason[*e.FailureReason]++
			}
		}

		if rc.LastAttemptAt == nil || e.Timestamp.After(*rc.LastAttemptAt) {
			ts := e.Timestamp
			rc.LastAttemptAt = &ts
		}
	}

	rc.DistinctSources = len(sources)
	if rc.TotalAttempts > 0 {
		rc.SuccessRate = float64(rc.SuccessCount) / float64(rc.TotalAttempts)
	}

	for _, b := range buckets {
		rc.Buckets = append(rc.Buckets, *b)
	}
	sort.Slice(rc.Buckets, func(i, j int) bool {
		return rc.Buckets[i].Start.Before(rc.Buckets[j].Start)
	})

	return rc
}
