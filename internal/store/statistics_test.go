package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/stats"
)

func sampleStatistics() []stats.Statistics {
	start := time.Date(2024, 1, 15, 10, 0, 0, 123456789, time.UTC)
	return []stats.Statistics{
		{Label: stats.LabelDecode, Context: "call", Duration: 3 * time.Millisecond, StartedAt: start},
		{Label: stats.LabelExpansion, Context: "http://ex/ageOf", Duration: time.Millisecond, StartedAt: start.Add(time.Second)},
		{Label: stats.LabelDecode, Context: "search", Duration: 2 * time.Millisecond, StartedAt: start.Add(2 * time.Second)},
	}
}

func TestWriteReadStatistics(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	want := sampleStatistics()

	require.NoError(t, s.WriteStatistics(ctx, "run-1", want))

	got, err := s.ReadStatistics(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Label, got[i].Label)
		assert.Equal(t, want[i].Context, got[i].Context)
		assert.Equal(t, want[i].Duration, got[i].Duration)
		assert.True(t, want[i].StartedAt.Equal(got[i].StartedAt), "started_at at %d", i)
	}
}

func TestWriteStatisticsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteStatistics(ctx, "run-1", sampleStatistics()))
	require.NoError(t, s.WriteStatistics(ctx, "run-1", sampleStatistics()))

	got, err := s.ReadStatistics(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestReadStatisticsUnknownRun(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadStatistics(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestWriteStatisticsRequiresRunID(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteStatistics(context.Background(), "", sampleStatistics())
	assert.ErrorContains(t, err, "run ID is empty")
}

func TestTotalDurations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteStatistics(ctx, "run-1", sampleStatistics()))
	require.NoError(t, s.WriteStatistics(ctx, "run-2", sampleStatistics()[:1]))

	totals, err := s.TotalDurations(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]time.Duration{
		stats.LabelDecode:    8 * time.Millisecond,
		stats.LabelExpansion: time.Millisecond,
	}, totals)
}

func TestManagerStatisticsRoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	clock := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	mgr := stats.NewManager(stats.WithRecording(true), stats.WithClock(func() time.Time {
		clock = clock.Add(time.Millisecond)
		return clock
	}))
	stop := mgr.Start(stats.LabelEvaluation, "query")
	stop()

	require.NoError(t, s.WriteStatistics(ctx, "run-1", mgr.Statistics()))
	got, err := s.ReadStatistics(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, time.Millisecond, got[0].Duration)
	assert.Equal(t, stats.LabelEvaluation, got[0].Label)
}
