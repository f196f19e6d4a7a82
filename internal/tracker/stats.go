package tracker

import (
	"context"
	"database/sql"
	"fmt"

	"tracker-backend/internal/dates"
)

// Window limits for RangeStats.
const (
	MinRangeDays     = 1
	MaxRangeDays     = 90
	DefaultRangeDays = 21
)

// TrackableWithValue is a trackable with its resolved value on one date.
type TrackableWithValue struct {
	Trackable
	Value     Value `json:"value"`
	IsDefault bool  `json:"is_default"`
}

type TodayAggregates struct {
	HabitsDoneToday int `json:"habits_done_today"`
	HabitsTotal     int `json:"habits_total"`
}

type TodayStats struct {
	Date       string               `json:"date"`
	Trackables []TrackableWithValue `json:"trackables"`
	Aggregates TodayAggregates      `json:"aggregates"`
}

// RangeStats holds the explicit entries of a date window. Values only
// contains dates with a stored row; other dates take Defaults.
type RangeStats struct {
	StartDate  string                      `json:"start_date"`
	EndDate    string                      `json:"end_date"`
	Days       []string                    `json:"days"`
	Trackables []Trackable                 `json:"trackables"`
	Defaults   map[string]Value            `json:"defaults"`
	Values     map[string]map[string]Value `json:"values"`
}

func isHabit(t *Trackable) bool {
	return t.Kind == KindHabit && t.ValueType == ValueBoolean
}

// TodayStats resolves every live trackable on date and counts completed habits.
func (s *Service) TodayStats(ctx context.Context, date string) (*TodayStats, error) {
	if !dates.IsValid(date) {
		return nil, ErrInvalidDate
	}
	trackables, err := s.ListTrackables(ctx)
	if err != nil {
		return nil, err
	}
	recorded, err := s.entriesBetween(ctx, date, date)
	if err != nil {
		return nil, err
	}

	out := &TodayStats{Date: date, Trackables: make([]TrackableWithValue, 0, len(trackables))}
	for i := range trackables {
		t := &trackables[i]
		item := TrackableWithValue{Trackable: *t, Value: DefaultValueFor(t), IsDefault: true}
		if v, ok := recorded[t.ID][date]; ok {
			item.Value, item.IsDefault = v, false
		}
		if isHabit(t) {
			out.Aggregates.HabitsTotal++
			if item.Value.Type == ValueBoolean && item.Value.Bool {
				out.Aggregates.HabitsDoneToday++
			}
		}
		out.Trackables = append(out.Trackables, item)
	}
	return out, nil
}

// ClampRangeDays bounds a requested window length to [MinRangeDays, MaxRangeDays].
func ClampRangeDays(days int) int {
	if days < MinRangeDays {
		return MinRangeDays
	}
	if days > MaxRangeDays {
		return MaxRangeDays
	}
	return days
}

// RangeStats covers the days-long window ending on endDate.
func (s *Service) RangeStats(ctx context.Context, days int, endDate string) (*RangeStats, error) {
	if !dates.IsValid(endDate) {
		return nil, ErrInvalidDate
	}
	start := dates.DaysAgo(endDate, ClampRangeDays(days)-1)
	return s.buildRange(ctx, start, endDate)
}

// RangeStatsAll covers everything from the earliest entry or trackable
// creation up to endDate.
func (s *Service) RangeStatsAll(ctx context.Context, endDate string) (*RangeStats, error) {
	if !dates.IsValid(endDate) {
		return nil, ErrInvalidDate
	}
	start, err := s.earliestDate(ctx)
	if err != nil {
		return nil, err
	}
	if start == "" || !dates.IsValid(start) || start > endDate {
		start = endDate
	}
	return s.buildRange(ctx, start, endDate)
}

func (s *Service) earliestDate(ctx context.Context) (string, error) {
	var fromEntries, fromTrackables sql.NullString
	if err := s.store.DB.QueryRowContext(ctx, "SELECT MIN(date) FROM daily_entries").Scan(&fromEntries); err != nil {
		return "", fmt.Errorf("earliest entry: %w", err)
	}
	if err := s.store.DB.QueryRowContext(ctx,
		"SELECT MIN(substr(created_at, 1, 10)) FROM trackables WHERE deleted_at IS NULL").Scan(&fromTrackables); err != nil {
		return "", fmt.Errorf("earliest trackable: %w", err)
	}
	earliest := fromEntries.String
	if fromTrackables.Valid && (earliest == "" || fromTrackables.String < earliest) {
		earliest = fromTrackables.String
	}
	return earliest, nil
}

func (s *Service) buildRange(ctx context.Context, start, end string) (*RangeStats, error) {
	trackables, err := s.ListTrackables(ctx)
	if err != nil {
		return nil, err
	}
	recorded, err := s.entriesBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}

	out := &RangeStats{
		StartDate:  start,
		EndDate:    end,
		Days:       dates.RangeDays(start, end),
		Trackables: trackables,
		Defaults:   make(map[string]Value, len(trackables)),
		Values:     make(map[string]map[string]Value, len(trackables)),
	}
	for i := range trackables {
		t := &trackables[i]
		out.Defaults[t.ID] = DefaultValueFor(t)
		byDate := recorded[t.ID]
		if byDate == nil {
			byDate = map[string]Value{}
		}
		out.Values[t.ID] = byDate
	}
	return out, nil
}

// entriesBetween returns trackable id -> date -> stored value for [start, end].
// Entries of deleted trackables and entries whose type no longer matches
// their trackable are excluded.
func (s *Service) entriesBetween(ctx context.Context, start, end string) (map[string]map[string]Value, error) {
	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf(`SELECT e.trackable_id, e.date, e.value_type, e.value_bool, e.value_int, t.value_type
		FROM daily_entries e
		JOIN trackables t ON t.id = e.trackable_id
		WHERE t.deleted_at IS NULL AND e.date >= %s AND e.date <= %s`, pb.Add(start), pb.Add(end))
	rows, err := s.store.DB.QueryContext(ctx, query, pb.Params()...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	out := map[string]map[string]Value{}
	for rows.Next() {
		var (
			trackableID, date, valueType string
			valueBool, valueInt          sql.NullInt64
			trackableType                sql.NullString
		)
		if err := rows.Scan(&trackableID, &date, &valueType, &valueBool, &valueInt, &trackableType); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		v := entryValue(valueType, valueBool, valueInt)
		// Rows left over from before a value_type change read as the default.
		if v.IsNull() || v.Type != CoerceValueType(trackableType.String) {
			continue
		}
		if out[trackableID] == nil {
			out[trackableID] = map[string]Value{}
		}
		out[trackableID][date] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return out, nil
}
