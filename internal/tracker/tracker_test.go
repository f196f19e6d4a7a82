package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker-backend/internal/config"
	"tracker-backend/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	st, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "tracker_test"})
	require.NoError(t, err)
	t.Cleanup(st.Close)
	require.NoError(t, st.Bootstrap(ctx))

	svc := NewService(st)
	svc.now = func() time.Time { return time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func strPtr(s string) *string { return &s }

func mustCreate(t *testing.T, svc *Service, in NewTrackable) *Trackable {
	t.Helper()
	tr, err := svc.CreateTrackable(context.Background(), in)
	require.NoError(t, err)
	return tr
}

func habit(name string) NewTrackable {
	return NewTrackable{Name: name, Kind: KindHabit, ValueType: "boolean"}
}

func mood() NewTrackable {
	return NewTrackable{Name: "Mood", Key: strPtr("mood"), Kind: "metric", ValueType: "range"}
}

func TestCreateTrackable_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   NewTrackable
		msg  string
	}{
		{"missing name", NewTrackable{Kind: "habit", ValueType: "boolean"}, "missing name"},
		{"missing kind", NewTrackable{Name: "x", ValueType: "boolean"}, "missing kind"},
		{"missing value type", NewTrackable{Name: "x", Kind: "habit"}, "missing value_type"},
		{"unsupported value type", NewTrackable{Name: "x", Kind: "habit", ValueType: "text"}, "unsupported value_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateTrackable(ctx, tt.in)
			require.ErrorIs(t, err, ErrInvalidValue)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCreateTrackable_NormalizesConfig(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := mood()
	in.Config = map[string]any{"default": 9.7, "min": 0.0, "max": 10.0}
	tr := mustCreate(t, svc, in)
	assert.Equal(t, RangeValue(5), tr.Config.Default)

	got, err := svc.GetTrackableByKey(ctx, "mood")
	require.NoError(t, err)
	assert.Equal(t, tr.ID, got.ID)
	assert.Equal(t, RangeValue(5), got.Config.Default)

	b, err := json.Marshal(got.Config)
	require.NoError(t, err)
	assert.JSONEq(t, `{"default":5,"min":1,"max":5}`, string(b))
}

func TestCreateTrackable_DuplicateKey(t *testing.T) {
	svc := newTestService(t)
	mustCreate(t, svc, mood())

	_, err := svc.CreateTrackable(context.Background(), mood())
	assert.ErrorIs(t, err, ErrConflict)
}

func TestCreateTrackable_EmptyKeyIsNull(t *testing.T) {
	svc := newTestService(t)
	in := habit("a")
	in.Key = strPtr("")
	a := mustCreate(t, svc, in)
	assert.Nil(t, a.Key)

	in = habit("b")
	in.Key = strPtr("")
	mustCreate(t, svc, in)
}

func TestListTrackables_OrderAndSoftDelete(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	b := habit("Bravo")
	b.SortOrder = 1
	mustCreate(t, svc, b)
	alpha := mustCreate(t, svc, NewTrackable{Name: "Alpha", Kind: "habit", ValueType: "boolean", SortOrder: 1})
	zulu := mustCreate(t, svc, habit("Zulu"))

	list, err := svc.ListTrackables(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Zulu", "Alpha", "Bravo"}, []string{list[0].Name, list[1].Name, list[2].Name})

	ok, err := svc.SoftDeleteTrackable(ctx, alpha.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.SoftDeleteTrackable(ctx, alpha.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	list, err = svc.ListTrackables(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.GetTrackableByID(ctx, alpha.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetTrackableByID(ctx, zulu.ID)
	assert.NoError(t, err)
}

func TestUpdateTrackable_Patch(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	in := mood()
	in.Icon = strPtr("smile")
	in.Color = strPtr("#ff0")
	tr := mustCreate(t, svc, in)

	var patch TrackablePatch
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Feeling","kind":null,"icon":null,"sort_order":4}`), &patch))
	got, err := svc.UpdateTrackable(ctx, tr.ID, patch)
	require.NoError(t, err)

	assert.Equal(t, "Feeling", got.Name)
	assert.Equal(t, "metric", got.Kind)
	assert.Nil(t, got.Icon)
	require.NotNil(t, got.Color)
	assert.Equal(t, "#ff0", *got.Color)
	require.NotNil(t, got.Key)
	assert.Equal(t, "mood", *got.Key)
	assert.Equal(t, 4, got.SortOrder)

	stored, err := svc.GetTrackableByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestUpdateTrackable_ValueTypeRenormalizesConfig(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := mustCreate(t, svc, mood())

	got, err := svc.UpdateTrackable(ctx, tr.ID, TrackablePatch{ValueType: Some("boolean")})
	require.NoError(t, err)
	assert.Equal(t, ValueBoolean, got.ValueType)
	assert.Equal(t, BoolValue(false), got.Config.Default)

	b, err := json.Marshal(got.Config)
	require.NoError(t, err)
	assert.JSONEq(t, `{"default":false}`, string(b))
}

func TestUpdateTrackable_NotFound(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.UpdateTrackable(context.Background(), "missing", TrackablePatch{Name: Some("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateTrackable_KeyConflict(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, mood())
	other := mustCreate(t, svc, habit("Water"))

	_, err := svc.UpdateTrackable(ctx, other.ID, TrackablePatch{Key: Some("mood")})
	assert.ErrorIs(t, err, ErrConflict)
}

func countEntries(t *testing.T, svc *Service, trackableID string) int {
	t.Helper()
	var n int
	require.NoError(t, svc.store.DB.QueryRow("SELECT COUNT(*) FROM daily_entries WHERE trackable_id = ?1", trackableID).Scan(&n))
	return n
}

func TestSetEntry_DefaultRemovesRow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := mustCreate(t, svc, mood())

	res, err := svc.SetEntry(ctx, tr, "2024-01-05", 4)
	require.NoError(t, err)
	assert.Equal(t, EntryResult{Value: RangeValue(4), IsDefault: false}, *res)
	assert.Equal(t, 1, countEntries(t, svc, tr.ID))

	res, err = svc.SetEntry(ctx, tr, "2024-01-05", 5)
	require.NoError(t, err)
	assert.False(t, res.IsDefault)
	assert.Equal(t, 1, countEntries(t, svc, tr.ID))

	res, err = svc.SetEntry(ctx, tr, "2024-01-05", 3)
	require.NoError(t, err)
	assert.Equal(t, EntryResult{Value: RangeValue(3), IsDefault: true}, *res)
	assert.Equal(t, 0, countEntries(t, svc, tr.ID))

	stats, err := svc.TodayStats(ctx, "2024-01-05")
	require.NoError(t, err)
	require.Len(t, stats.Trackables, 1)
	assert.Equal(t, RangeValue(3), stats.Trackables[0].Value)
	assert.True(t, stats.Trackables[0].IsDefault)
}

func TestSetEntry_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := mustCreate(t, svc, mood())
	h := mustCreate(t, svc, habit("Water"))

	_, err := svc.SetEntry(ctx, tr, "2024-01-05", 6)
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = svc.SetEntry(ctx, tr, "2024-01-05", 2.5)
	assert.ErrorIs(t, err, ErrInvalidValue)
	_, err = svc.SetEntry(ctx, tr, "2024-02-30", 2)
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = svc.SetEntry(ctx, h, "2024-01-05", "yes")
	assert.ErrorIs(t, err, ErrInvalidValue)

	res, err := svc.SetEntry(ctx, tr, "2024-01-05", "2")
	require.NoError(t, err)
	assert.Equal(t, RangeValue(2), res.Value)
}

func TestClearEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := mustCreate(t, svc, mood())

	_, err := svc.SetEntry(ctx, tr, "2024-01-05", 1)
	require.NoError(t, err)
	require.NoError(t, svc.ClearEntry(ctx, tr.ID, "2024-01-05"))
	assert.Equal(t, 0, countEntries(t, svc, tr.ID))

	require.NoError(t, svc.ClearEntry(ctx, tr.ID, "2024-01-05"))
	assert.ErrorIs(t, svc.ClearEntry(ctx, tr.ID, "05/01/2024"), ErrInvalidDate)
}

func TestToggleEntry(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	h := mustCreate(t, svc, habit("Water"))

	res, err := svc.ToggleEntry(ctx, h, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, EntryResult{Value: BoolValue(true), IsDefault: false}, *res)
	assert.Equal(t, 1, countEntries(t, svc, h.ID))

	res, err = svc.ToggleEntry(ctx, h, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, EntryResult{Value: BoolValue(false), IsDefault: true}, *res)
	assert.Equal(t, 0, countEntries(t, svc, h.ID))

	tr := mustCreate(t, svc, mood())
	_, err = svc.ToggleEntry(ctx, tr, "2024-01-05")
	assert.ErrorIs(t, err, ErrInvalidAction)
}

func TestToggleEntry_TrueDefault(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	in := habit("Sleep")
	in.Config = map[string]any{"default": true}
	h := mustCreate(t, svc, in)

	res, err := svc.ToggleEntry(ctx, h, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, BoolValue(false), res.Value)
	assert.False(t, res.IsDefault)
}

func TestTodayStats_HabitAggregates(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	water := mustCreate(t, svc, habit("Water"))
	mustCreate(t, svc, habit("Walk"))
	in := habit("Stretch")
	in.Config = map[string]any{"default": true}
	mustCreate(t, svc, in)
	mustCreate(t, svc, NewTrackable{Name: "Coffee", Kind: "log", ValueType: "boolean", Config: map[string]any{"default": true}})
	mustCreate(t, svc, NewTrackable{Name: "Energy", Kind: KindHabit, ValueType: "range"})

	_, err := svc.SetEntry(ctx, water, "2024-01-05", true)
	require.NoError(t, err)

	stats, err := svc.TodayStats(ctx, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", stats.Date)
	assert.Len(t, stats.Trackables, 5)
	assert.Equal(t, TodayAggregates{HabitsDoneToday: 2, HabitsTotal: 3}, stats.Aggregates)

	stats, err = svc.TodayStats(ctx, "2024-01-06")
	require.NoError(t, err)
	assert.Equal(t, TodayAggregates{HabitsDoneToday: 1, HabitsTotal: 3}, stats.Aggregates)
}

func TestStats_ExcludeDeleted(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	gone := mustCreate(t, svc, habit("Gone"))
	kept := mustCreate(t, svc, habit("Kept"))
	_, err := svc.SetEntry(ctx, gone, "2024-01-05", true)
	require.NoError(t, err)
	_, err = svc.SoftDeleteTrackable(ctx, gone.ID)
	require.NoError(t, err)

	today, err := svc.TodayStats(ctx, "2024-01-05")
	require.NoError(t, err)
	require.Len(t, today.Trackables, 1)
	assert.Equal(t, kept.ID, today.Trackables[0].ID)
	assert.Equal(t, 0, today.Aggregates.HabitsDoneToday)

	rng, err := svc.RangeStats(ctx, 7, "2024-01-07")
	require.NoError(t, err)
	require.Len(t, rng.Trackables, 1)
	assert.NotContains(t, rng.Values, gone.ID)
	assert.NotContains(t, rng.Defaults, gone.ID)
}

func TestRangeStats_Window(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := mustCreate(t, svc, mood())
	_, err := svc.SetEntry(ctx, tr, "2024-01-02", 5)
	require.NoError(t, err)
	_, err = svc.SetEntry(ctx, tr, "2023-12-01", 1)
	require.NoError(t, err)

	rng, err := svc.RangeStats(ctx, 3, "2024-01-03")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01", rng.StartDate)
	assert.Equal(t, "2024-01-03", rng.EndDate)
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-03"}, rng.Days)
	assert.Equal(t, RangeValue(3), rng.Defaults[tr.ID])
	assert.Equal(t, map[string]Value{"2024-01-02": RangeValue(5)}, rng.Values[tr.ID])

	b, err := json.Marshal(rng.Values)
	require.NoError(t, err)
	assert.JSONEq(t, `{"`+tr.ID+`":{"2024-01-02":5}}`, string(b))
}

func TestRangeStats_Clamped(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rng, err := svc.RangeStats(ctx, 200, "2024-03-31")
	require.NoError(t, err)
	assert.Len(t, rng.Days, MaxRangeDays)
	assert.Equal(t, "2024-01-02", rng.StartDate)

	rng, err = svc.RangeStats(ctx, 0, "2024-03-31")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-31"}, rng.Days)
	assert.NotNil(t, rng.Trackables)
	assert.NotNil(t, rng.Values)
}

func TestRangeStatsAll(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	rng, err := svc.RangeStatsAll(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", rng.StartDate)
	assert.Len(t, rng.Days, 1)

	tr := mustCreate(t, svc, mood())
	rng, err = svc.RangeStatsAll(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10", rng.StartDate)
	assert.Len(t, rng.Days, 6)

	_, err = svc.SetEntry(ctx, tr, "2024-01-03", 1)
	require.NoError(t, err)
	rng, err = svc.RangeStatsAll(ctx, "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "2024-01-03", rng.StartDate)
	assert.Len(t, rng.Days, 13)

	rng, err = svc.RangeStatsAll(ctx, "2023-06-01")
	require.NoError(t, err)
	assert.Equal(t, "2023-06-01", rng.StartDate)
	assert.Equal(t, []string{"2023-06-01"}, rng.Days)
}

func TestErrorsAreDistinct(t *testing.T) {
	all := []error{ErrInvalidValue, ErrInvalidDate, ErrOutOfRange, ErrInvalidAction, ErrNotFound, ErrConflict}
	for i, a := range all {
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b))
		}
	}
}

func TestStats_StaleEntryAfterValueTypeChange(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	tr := mustCreate(t, svc, NewTrackable{Name: "Run", Kind: KindHabit, ValueType: "range"})
	_, err := svc.SetEntry(ctx, tr, "2024-01-05", 4)
	require.NoError(t, err)

	tr, err = svc.UpdateTrackable(ctx, tr.ID, TrackablePatch{ValueType: Some("boolean")})
	require.NoError(t, err)

	today, err := svc.TodayStats(ctx, "2024-01-05")
	require.NoError(t, err)
	require.Len(t, today.Trackables, 1)
	assert.Equal(t, BoolValue(false), today.Trackables[0].Value)
	assert.True(t, today.Trackables[0].IsDefault)
	assert.Equal(t, TodayAggregates{HabitsDoneToday: 0, HabitsTotal: 1}, today.Aggregates)

	rng, err := svc.RangeStats(ctx, 7, "2024-01-07")
	require.NoError(t, err)
	assert.Empty(t, rng.Values[tr.ID])
	assert.Equal(t, BoolValue(false), rng.Defaults[tr.ID])

	res, err := svc.ToggleEntry(ctx, tr, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, EntryResult{Value: BoolValue(true), IsDefault: false}, *res)

	today, err = svc.TodayStats(ctx, "2024-01-05")
	require.NoError(t, err)
	assert.Equal(t, BoolValue(true), today.Trackables[0].Value)
	assert.Equal(t, 1, today.Aggregates.HabitsDoneToday)
}
