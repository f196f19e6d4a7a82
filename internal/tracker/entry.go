package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tracker-backend/internal/dates"
	"tracker-backend/internal/store"
)

// EntryResult is the resolved value of a trackable on one date.
type EntryResult struct {
	Value     Value `json:"value"`
	IsDefault bool  `json:"is_default"`
}

// Stored value_type tags of daily_entries rows.
const (
	entryTypeBoolean = "boolean"
	entryTypeInt     = "int"
)

// entryValue decodes the typed slots of a daily_entries row. Rows with an
// unknown type or an empty slot decode as the null Value.
func entryValue(valueType string, valueBool, valueInt sql.NullInt64) Value {
	switch valueType {
	case entryTypeBoolean:
		if !valueBool.Valid {
			return Value{}
		}
		return BoolValue(valueBool.Int64 != 0)
	case entryTypeInt, string(ValueRange):
		if !valueInt.Valid {
			return Value{}
		}
		return RangeValue(int(valueInt.Int64))
	default:
		return Value{}
	}
}

// SetEntry records value for trackable t on date. A value equal to the
// trackable's default removes the row instead of storing it.
func (s *Service) SetEntry(ctx context.Context, t *Trackable, date string, raw any) (*EntryResult, error) {
	if !dates.IsValid(date) {
		return nil, ErrInvalidDate
	}
	v, err := NormalizeValue(raw, t)
	if err != nil {
		return nil, err
	}
	return s.putEntry(ctx, t, date, v)
}

func (s *Service) putEntry(ctx context.Context, t *Trackable, date string, v Value) (*EntryResult, error) {
	if v == DefaultValueFor(t) {
		if err := s.deleteEntry(ctx, t.ID, date); err != nil {
			return nil, err
		}
		return &EntryResult{Value: v, IsDefault: true}, nil
	}

	var (
		entryType string
		slotBool  any
		slotInt   any
	)
	switch v.Type {
	case ValueBoolean:
		entryType = entryTypeBoolean
		slotBool = 0
		if v.Bool {
			slotBool = 1
		}
	default:
		entryType = entryTypeInt
		slotInt = v.Int
	}

	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf(`INSERT INTO daily_entries (trackable_id, date, value_type, value_bool, value_int, value_num, value_text, updated_at)
		VALUES (%s, %s, %s, %s, %s, NULL, NULL, %s)
		ON CONFLICT (trackable_id, date) DO UPDATE SET
			value_type = excluded.value_type,
			value_bool = excluded.value_bool,
			value_int = excluded.value_int,
			value_num = NULL,
			value_text = NULL,
			updated_at = excluded.updated_at`,
		pb.Add(t.ID), pb.Add(date), pb.Add(entryType), pb.Add(slotBool), pb.Add(slotInt), pb.Add(s.timestamp()))
	if _, err := store.Exec(ctx, s.store.DB, query, pb.Params()...); err != nil {
		return nil, fmt.Errorf("upsert entry: %w", err)
	}
	return &EntryResult{Value: v, IsDefault: false}, nil
}

// ClearEntry removes the entry of trackableID on date, if any.
func (s *Service) ClearEntry(ctx context.Context, trackableID, date string) error {
	if !dates.IsValid(date) {
		return ErrInvalidDate
	}
	return s.deleteEntry(ctx, trackableID, date)
}

func (s *Service) deleteEntry(ctx context.Context, trackableID, date string) error {
	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf("DELETE FROM daily_entries WHERE trackable_id = %s AND date = %s", pb.Add(trackableID), pb.Add(date))
	if _, err := store.Exec(ctx, s.store.DB, query, pb.Params()...); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// ToggleEntry flips the boolean value of t on date. Only boolean
// trackables can be toggled.
func (s *Service) ToggleEntry(ctx context.Context, t *Trackable, date string) (*EntryResult, error) {
	if t.ValueType != ValueBoolean {
		return nil, fmt.Errorf("%w: toggle requires a boolean trackable", ErrInvalidAction)
	}
	if !dates.IsValid(date) {
		return nil, ErrInvalidDate
	}
	current, err := s.entryAt(ctx, t.ID, date)
	if err != nil {
		return nil, err
	}
	if current.Type != ValueBoolean {
		current = DefaultValueFor(t)
	}
	return s.putEntry(ctx, t, date, BoolValue(!current.Bool))
}

// entryAt returns the stored value, or the null Value when no row exists.
func (s *Service) entryAt(ctx context.Context, trackableID, date string) (Value, error) {
	var (
		valueType           string
		valueBool, valueInt sql.NullInt64
	)
	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT value_type, value_bool, value_int FROM daily_entries WHERE trackable_id = %s AND date = %s",
		pb.Add(trackableID), pb.Add(date))
	err := s.store.DB.QueryRowContext(ctx, query, pb.Params()...).Scan(&valueType, &valueBool, &valueInt)
	if errors.Is(err, sql.ErrNoRows) {
		return Value{}, nil
	}
	if err != nil {
		return Value{}, fmt.Errorf("read entry: %w", err)
	}
	return entryValue(valueType, valueBool, valueInt), nil
}
