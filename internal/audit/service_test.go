package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dos-laredos/dos-laredos/internal/shared"
)

type stubRepo struct {
	rows []TimelineRow
	last TimelineFilters
}

func (s *stubRepo) Timeline(_ context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	s.last = filters
	return s.rows, nil
}

func TestTimelineNormalisesFilters(t *testing.T) {
	repo := &stubRepo{rows: []TimelineRow{{ID: 1, Action: "order.cancel", Entity: EntityOrder, EntityID: "12"}}}
	svc := NewService(repo)

	rows, err := svc.Timeline(context.Background(), TimelineFilters{Entity: " Order ", EntityID: "12 "})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, EntityOrder, repo.last.Entity)
	require.Equal(t, "12", repo.last.EntityID)
	require.Equal(t, defaultLimit, repo.last.Limit)

	_, err = svc.Timeline(context.Background(), TimelineFilters{Entity: EntityPallet, EntityID: "3", Limit: 10_000})
	require.NoError(t, err)
	require.Equal(t, maxLimit, repo.last.Limit)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	svc := NewService(&stubRepo{})
	ctx := context.Background()
	now := time.Now()

	for _, f := range []TimelineFilters{
		{Entity: "journal", EntityID: "1"},
		{Entity: EntityCredit},
		{Entity: EntityOrder, EntityID: "1", From: now, To: now.Add(-time.Hour)},
	} {
		_, err := svc.Timeline(ctx, f)
		require.ErrorIs(t, err, shared.ErrValidation)
	}
}

func TestOptionalFilterValues(t *testing.T) {
	require.False(t, optionalText("").Valid)
	require.True(t, optionalText("order.close").Valid)
	require.False(t, toPgTime(time.Time{}).Valid)
	require.True(t, toPgTime(time.Now()).Valid)
}
