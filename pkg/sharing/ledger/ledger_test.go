package ledger

import (
	"testing"
	"time"

	"github.com/scratchdata/sharelinks/pkg/storage/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func entry(offset time.Duration, source string, reason models.FailureReason) models.AccessLogEntry {
	e := models.AccessLogEntry{
		ShareLinkID:   "link-1",
		Timestamp:     base.Add(offset),
		SourceAddress: source,
		Outcome:       models.Success,
	}
	if reason != "" {
		e.Outcome = models.Failure
		e.FailureReason = &reason
	}
	return e
}

func TestSummarize(t *testing.T) {
	link := models.ShareLink{ID: "link-1", IsActive: true, AccessCount: 2, MaxAccessCount: 2}
	entries := []models.AccessLogEntry{
		entry(5*time.Minute, "10.0.0.1", ""),
		entry(10*time.Minute, "10.0.0.2", ""),
		entry(70*time.Minute, "10.0.0.1", models.ReasonLimitReached),
		entry(75*time.Minute, "10.0.0.3", models.ReasonBadPassword),
	}

	s := Summarize(link, entries, time.Hour)

	assert.Equal(t, "link-1", s.ShareLinkID)
	assert.Equal(t, int64(2), s.AccessCount)
	assert.Equal(t, int64(4), s.TotalAttempts)
	assert.Equal(t, int64(2), s.SuccessCount)
	assert.Equal(t, int64(2), s.FailureCount)
	assert.Equal(t, int64(1), s.FailuresByReason[models.ReasonLimitReached])
	assert.Equal(t, int64(1), s.FailuresByReason[models.ReasonBadPassword])
	assert.Equal(t, 3, s.DistinctSources)
	assert.InDelta(t, 0.5, s.SuccessRate, 1e-9)

	require.NotNil(t, s.LastAccessedAt)
	assert.Equal(t, base.Add(10*time.Minute), *s.LastAccessedAt)
	require.NotNil(t, s.LastAttemptAt)
	assert.Equal(t, base.Add(75*time.Minute), *s.LastAttemptAt)

	require.Len(t, s.Buckets, 2)
	assert.Equal(t, Bucket{Start: base, Successes: 2}, s.Buckets[0])
	assert.Equal(t, Bucket{Start: base.Add(time.Hour), Failures: 2}, s.Buckets[1])
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(models.ShareLink{ID: "link-1"}, nil, 0)

	assert.Equal(t, int64(0), s.TotalAttempts)
	assert.Equal(t, 0.0, s.SuccessRate)
	assert.Equal(t, time.Hour, s.BucketSize)
	assert.NotNil(t, s.Buckets)
	assert.Empty(t, s.Buckets)
	assert.Nil(t, s.LastAccessedAt)
}

func TestSummarizeBucketsAreSorted(t *testing.T) {
	entries := []models.AccessLogEntry{
		entry(3*time.Hour, "a", ""),
		entry(0, "a", ""),
		entry(90*time.Minute, "a", ""),
	}

	s := Summarize(models.ShareLink{ID: "link-1"}, entries, 30*time.Minute)
	require.Len(t, s.Buckets, 3)
	for i := 1; i < len(s.Buckets); i++ {
		assert.True(t, s.Buckets[i-1].Start.Before(s.Buckets[i].Start))
	}
	assert.Equal(t, 1, s.DistinctSources)
}
