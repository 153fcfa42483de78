package playledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"meeplepoint-rewards/pkg/db/pagination"
	"meeplepoint-rewards/pkg/errutil"
	"meeplepoint-rewards/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	db := testutil.NewTestDB(t, &PlayRecord{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return NewService(ServiceParams{DB: db, Node: node})
}

func TestMarkWinsOncePerDay(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, rec, err := svc.Mark(ctx, nil, &PlayRecord{
		UserID:        "u1",
		GameID:        "sudoku",
		PlayDay:       "2026-09-01",
		PointsAwarded: 120,
	})
	require.NoError(t, err)
	require.True(t, created)
	require.NotZero(t, rec.ID)
	require.False(t, rec.AwardedAt.IsZero())

	// Second attempt loses the gate and surfaces the original record.
	created, again, err := svc.Mark(ctx, nil, &PlayRecord{
		UserID:        "u1",
		GameID:        "sudoku",
		PlayDay:       "2026-09-01",
		PointsAwarded: 999,
	})
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, rec.ID, again.ID)
	require.Equal(t, int64(120), again.PointsAwarded)
}

func TestMarkIndependentAcrossGamesAndDays(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, key := range []struct{ game, day string }{
		{"sudoku", "2026-09-01"},
		{"minesweeper", "2026-09-01"},
		{"sudoku", "2026-09-02"},
	} {
		created, _, err := svc.Mark(ctx, nil, &PlayRecord{
			UserID:        "u1",
			GameID:        key.game,
			PlayDay:       key.day,
			PointsAwarded: 50,
		})
		require.NoError(t, err)
		require.True(t, created, "%s/%s should be a fresh gate", key.game, key.day)
	}

	plays, err := svc.ListByDay(ctx, "u1", "2026-09-01")
	require.NoError(t, err)
	require.Len(t, plays, 2)
}

func TestGetMissingReturnsNil(t *testing.T) {
	svc := newTestService(t)

	rec, err := svc.Get(context.Background(), "nobody", "sudoku", "2026-09-01")
	require.NoError(t, err)
	require.Nil(t, rec)
}

func TestHistoryNewestFirstWithCap(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, _, err := svc.Mark(ctx, nil, &PlayRecord{
			UserID:        "u1",
			GameID:        "chess",
			PlayDay:       fmt.Sprintf("2026-08-%02d", i+1),
			PointsAwarded: int64(i),
			AwardedAt:     base.AddDate(0, 0, i),
		})
		require.NoError(t, err)
	}

	plays, info, err := svc.History(ctx, "u1", pagination.Pagination{Limit: 3})
	require.NoError(t, err)
	require.Len(t, plays, 3)
	require.Equal(t, "2026-08-05", plays[0].PlayDay)
	require.Equal(t, "2026-08-03", plays[2].PlayDay)
	require.True(t, info.HasMore)

	// The cursor walks into the remaining page.
	plays, info, err = svc.History(ctx, "u1", pagination.Pagination{Limit: 3, Cursor: info.NextCursor})
	require.NoError(t, err)
	require.Len(t, plays, 2)
	require.Equal(t, "2026-08-02", plays[0].PlayDay)
	require.False(t, info.HasMore)

	_, _, err = svc.History(ctx, "u1", pagination.Pagination{Cursor: "not-base64!"})
	require.Error(t, err)
	require.Equal(t, errutil.StatusBadRequest, testutil.ErrStatus(t, err))
}

func TestDayUsesLocation(t *testing.T) {
	// 2026-09-01 03:00 UTC is still 2026-08-31 in New York.
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	ts := time.Date(2026, 9, 1, 3, 0, 0, 0, time.UTC)
	require.Equal(t, "2026-09-01", Day(ts, time.UTC))
	require.Equal(t, "2026-08-31", Day(ts, loc))
	require.Equal(t, "2026-09-01", Day(ts, nil))
}
