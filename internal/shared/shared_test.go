package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	require.Equal(t, "2.35", Round2(decimal.RequireFromString("2.345")).StringFixed(2))
	require.Equal(t, "-2.35", Round2(decimal.RequireFromString("-2.345")).StringFixed(2))
	require.Equal(t, "0.01", Round2(decimal.RequireFromString("0.005")).StringFixed(2))
}

func TestMarginZeroWithoutRevenue(t *testing.T) {
	require.True(t, Margin(decimal.NewFromInt(-50), decimal.Zero).IsZero())
	require.True(t, Margin(decimal.NewFromInt(10), decimal.NewFromInt(-1)).IsZero())
	require.Equal(t, "25", Margin(decimal.NewFromInt(25), decimal.NewFromInt(100)).String())
	require.Equal(t, "30", PercentOf(decimal.NewFromInt(200), decimal.NewFromInt(15)).String())
}

func TestPeriodBounds(t *testing.T) {
	wib := time.FixedZone("WIB", 7*3600)
	// 2024-06-09 20:00 UTC is already Monday 2024-06-10 in WIB.
	at := time.Date(2024, 6, 9, 20, 0, 0, 0, time.UTC)

	start, end := DayBounds(at, wib)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, wib), start)
	require.Equal(t, time.Date(2024, 6, 11, 0, 0, 0, 0, wib), end)

	start, end = WeekBounds(at, wib)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, wib), start)
	require.Equal(t, time.Date(2024, 6, 17, 0, 0, 0, 0, wib), end)

	start, _ = WeekBounds(time.Date(2024, 6, 16, 12, 0, 0, 0, time.UTC), time.UTC)
	require.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), start)

	start, end = MonthBounds(time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC), time.UTC)
	require.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), end)
}

func TestDaySeries(t *testing.T) {
	a := time.Date(2024, 2, 27, 9, 0, 0, 0, time.UTC)
	b := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	days := DaySeries(a, b, time.UTC)
	require.Len(t, days, 4)
	require.Equal(t, "2024-02-29", days[2].Format(DateLayout))
	require.Equal(t, 3, DaysBetween(a, b))
	require.Nil(t, DaySeries(b, a, time.UTC))
}

func TestClampLimit(t *testing.T) {
	require.Equal(t, DefaultListLimit, ClampLimit(0, 0))
	require.Equal(t, 20, ClampLimit(0, 20))
	require.Equal(t, 7, ClampLimit(7, 20))
	require.Equal(t, MaxListLimit, ClampLimit(MaxListLimit+1, 20))
}

func TestUserMessage(t *testing.T) {
	rule := NewRuleError(ErrConflict, "stock: insufficient", "Not enough stock.")
	wrapped := fmt.Errorf("record usage: %w", rule)
	require.ErrorIs(t, wrapped, ErrConflict)
	require.Equal(t, "Not enough stock.", UserMessage(wrapped))
	require.Equal(t, "The end date must not be before the start date.", UserMessage(ErrInvalidRange))
	require.Equal(t, "Something went wrong. Please try again.", UserMessage(errors.New("boom")))
	require.Empty(t, UserMessage(nil))

	verr := &ValidationError{Fields: map[string]string{"amount": "must be positive"}}
	require.ErrorIs(t, verr, ErrValidation)
}

func TestActorContext(t *testing.T) {
	ctx := ContextWithActor(context.Background(), 42)
	require.Equal(t, int64(42), ActorFromContext(ctx))
	require.Zero(t, ActorFromContext(context.Background()))
}

type recordingExecer struct {
	sql  string
	args []any
}

func (e *recordingExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestRecordAudit(t *testing.T) {
	db := &recordingExecer{}
	err := RecordAudit(context.Background(), db, AuditLog{
		ActorID:  7,
		Action:   "expense.approve",
		Entity:   "expense",
		EntityID: "12",
		Meta:     map[string]any{"status": "APPROVED"},
	})
	require.NoError(t, err)
	require.Contains(t, db.sql, "INSERT INTO audit_logs")
	require.Equal(t, int64(7), db.args[0])
	require.JSONEq(t, `{"status":"APPROVED"}`, string(db.args[4].([]byte)))

	require.Error(t, RecordAudit(context.Background(), db, AuditLog{Action: "x"}))
}
