package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tracker-backend/internal/store"
)

// KindHabit marks boolean trackables that count towards the daily habit total.
const KindHabit = "habit"

const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Trackable struct {
	ID        string    `json:"id"`
	Key       *string   `json:"key"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	ValueType ValueType `json:"value_type"`
	Config    Config    `json:"config"`
	Icon      *string   `json:"icon"`
	Color     *string   `json:"color"`
	SortOrder int       `json:"sort_order"`
}

// NewTrackable is the input of CreateTrackable.
type NewTrackable struct {
	Name      string         `json:"name"`
	Key       *string        `json:"key"`
	Kind      string         `json:"kind"`
	ValueType string         `json:"value_type"`
	Config    map[string]any `json:"config"`
	Icon      *string        `json:"icon"`
	Color     *string        `json:"color"`
	SortOrder int            `json:"sort_order"`
}

// Validate checks the required fields and the value type.
func (in NewTrackable) Validate() error {
	switch {
	case in.Name == "":
		return fmt.Errorf("%w: missing name", ErrInvalidValue)
	case in.Kind == "":
		return fmt.Errorf("%w: missing kind", ErrInvalidValue)
	case in.ValueType == "":
		return fmt.Errorf("%w: missing value_type", ErrInvalidValue)
	case !IsSupportedValueType(in.ValueType):
		return fmt.Errorf("%w: unsupported value_type", ErrInvalidValue)
	}
	return nil
}

// Service is the data-access layer for trackables and their daily entries.
type Service struct {
	store *store.Store
	now   func() time.Time
}

func NewService(s *store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

const trackableColumns = "id, key, name, kind, value_type, config_json, icon, color, sort_order"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrackable(row rowScanner) (*Trackable, error) {
	var (
		t                        Trackable
		key, icon, color         sql.NullString
		valueType, configJSONRaw sql.NullString
	)
	if err := row.Scan(&t.ID, &key, &t.Name, &t.Kind, &valueType, &configJSONRaw, &icon, &color, &t.SortOrder); err != nil {
		return nil, err
	}
	vt := "range"
	if valueType.Valid {
		vt = valueType.String
	}
	t.ValueType = CoerceValueType(vt)
	t.Config = decodeConfig(t.ValueType, configJSONRaw.String)
	t.Key = nullString(key)
	t.Icon = nullString(icon)
	t.Color = nullString(color)
	return &t, nil
}

// ListTrackables returns live trackables ordered by sort order, then name.
func (s *Service) ListTrackables(ctx context.Context) ([]Trackable, error) {
	rows, err := s.store.DB.QueryContext(ctx,
		"SELECT "+trackableColumns+" FROM trackables WHERE deleted_at IS NULL ORDER BY sort_order ASC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("list trackables: %w", err)
	}
	defer rows.Close()

	trackables := []Trackable{}
	for rows.Next() {
		t, err := scanTrackable(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trackable: %w", err)
		}
		trackables = append(trackables, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list trackables: %w", err)
	}
	return trackables, nil
}

// GetTrackableByID returns ErrNotFound for unknown or deleted ids.
func (s *Service) GetTrackableByID(ctx context.Context, id string) (*Trackable, error) {
	return s.getTrackable(ctx, "id", id)
}

// GetTrackableByKey returns ErrNotFound for unknown keys or deleted trackables.
func (s *Service) GetTrackableByKey(ctx context.Context, key string) (*Trackable, error) {
	return s.getTrackable(ctx, "key", key)
}

func (s *Service) getTrackable(ctx context.Context, column, value string) (*Trackable, error) {
	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf("SELECT %s FROM trackables WHERE %s = %s AND deleted_at IS NULL",
		trackableColumns, column, pb.Add(value))
	t, err := scanTrackable(s.store.DB.QueryRowContext(ctx, query, pb.Params()...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get trackable by %s: %w", column, err)
	}
	return t, nil
}

// CreateTrackable validates and stores a new trackable.
func (s *Service) CreateTrackable(ctx context.Context, in NewTrackable) (*Trackable, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := Trackable{
		ID:        uuid.NewString(),
		Key:       normalizeKey(in.Key),
		Name:      in.Name,
		Kind:      in.Kind,
		ValueType: CoerceValueType(in.ValueType),
		Icon:      in.Icon,
		Color:     in.Color,
		SortOrder: in.SortOrder,
	}
	t.Config = NormalizeConfig(t.ValueType, in.Config)
	cfgJSON, err := encodeConfig(t.Config)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf(`INSERT INTO trackables (id, key, name, kind, value_type, config_json, icon, color, sort_order, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		pb.Add(t.ID), pb.Add(nullable(t.Key)), pb.Add(t.Name), pb.Add(t.Kind), pb.Add(string(t.ValueType)), pb.Add(cfgJSON),
		pb.Add(nullable(t.Icon)), pb.Add(nullable(t.Color)), pb.Add(t.SortOrder), pb.Add(now), pb.Add(now))
	if _, err := store.Exec(ctx, s.store.DB, query, pb.Params()...); err != nil {
		return nil, s.writeError("create trackable", err)
	}
	return &t, nil
}

// UpdateTrackable merges patch onto the live trackable id.
func (s *Service) UpdateTrackable(ctx context.Context, id string, patch TrackablePatch) (*Trackable, error) {
	existing, err := s.GetTrackableByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := patch.apply(*existing)
	cfgJSON, err := encodeConfig(next.Config)
	if err != nil {
		return nil, err
	}

	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf(`UPDATE trackables SET key = %s, name = %s, kind = %s, value_type = %s, config_json = %s,
		icon = %s, color = %s, sort_order = %s, updated_at = %s
		WHERE id = %s AND deleted_at IS NULL`,
		pb.Add(nullable(next.Key)), pb.Add(next.Name), pb.Add(next.Kind), pb.Add(string(next.ValueType)), pb.Add(cfgJSON),
		pb.Add(nullable(next.Icon)), pb.Add(nullable(next.Color)), pb.Add(next.SortOrder), pb.Add(s.timestamp()), pb.Add(id))
	affected, err := store.Exec(ctx, s.store.DB, query, pb.Params()...)
	if err != nil {
		return nil, s.writeError("update trackable", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return &next, nil
}

// SoftDeleteTrackable stamps deleted_at and reports whether a live row was hit.
func (s *Service) SoftDeleteTrackable(ctx context.Context, id string) (bool, error) {
	now := s.timestamp()
	pb := s.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf("UPDATE trackables SET deleted_at = %s, updated_at = %s WHERE id = %s AND deleted_at IS NULL",
		pb.Add(now), pb.Add(now), pb.Add(id))
	affected, err := store.Exec(ctx, s.store.DB, query, pb.Params()...)
	if err != nil {
		return false, fmt.Errorf("delete trackable: %w", err)
	}
	return affected > 0, nil
}

func (s *Service) writeError(op string, err error) error {
	if errors.Is(s.store.MapError(err), store.ErrUniqueViolation) {
		return ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

func normalizeKey(key *string) *string {
	if key == nil || strings.TrimSpace(*key) == "" {
		return nil
	}
	return key
}

// nullable unwraps optional strings so every driver sees NULL or TEXT.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
