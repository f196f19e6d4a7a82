package tracker

import (
	"bytes"
	"encoding/json"
)

// Optional records whether a JSON field was present at all, and whether it
// was an explicit null, so a patch can tell "leave unchanged" from "clear".
type Optional[T any] struct {
	Set   bool
	Null  bool
	Value T
}

func Some[T any](v T) Optional[T] { return Optional[T]{Set: true, Value: v} }

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Null = true
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// present is true when the field carries a non-null value.
func (o Optional[T]) present() bool { return o.Set && !o.Null }

// TrackablePatch is a partial update. Name, kind, value_type, config and
// sort_order ignore null; key, icon and color are cleared by null.
type TrackablePatch struct {
	Name      Optional[string]         `json:"name"`
	Key       Optional[string]         `json:"key"`
	Kind      Optional[string]         `json:"kind"`
	ValueType Optional[string]         `json:"value_type"`
	Config    Optional[map[string]any] `json:"config"`
	Icon      Optional[string]         `json:"icon"`
	Color     Optional[string]         `json:"color"`
	SortOrder Optional[int]            `json:"sort_order"`
}

// apply merges the patch onto t and re-normalizes the config against the
// resulting value type.
func (p TrackablePatch) apply(t Trackable) Trackable {
	next := t
	if p.Name.present() {
		next.Name = p.Name.Value
	}
	if p.Key.Set {
		next.Key = normalizeKey(nullableString(p.Key))
	}
	if p.Kind.present() {
		next.Kind = p.Kind.Value
	}
	if p.ValueType.present() && p.ValueType.Value != "" {
		next.ValueType = CoerceValueType(p.ValueType.Value)
	}
	raw := t.Config.fields()
	if p.Config.present() {
		raw = p.Config.Value
	}
	next.Config = NormalizeConfig(next.ValueType, raw)
	if p.Icon.Set {
		next.Icon = nullableString(p.Icon)
	}
	if p.Color.Set {
		next.Color = nullableString(p.Color)
	}
	if p.SortOrder.present() {
		next.SortOrder = p.SortOrder.Value
	}
	return next
}

func nullableString(o Optional[string]) *string {
	if o.Null {
		return nil
	}
	v := o.Value
	return &v
}
