package tracker

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type ValueType string

const (
	ValueBoolean ValueType = "boolean"
	ValueRange   ValueType = "range"
)

// Bounds of a range trackable. They are fixed, whatever the stored config says.
const (
	RangeMin     = 1
	RangeMax     = 5
	RangeDefault = 3
)

// CoerceValueType maps anything other than "boolean" to range.
func CoerceValueType(raw string) ValueType {
	if raw == string(ValueBoolean) {
		return ValueBoolean
	}
	return ValueRange
}

// IsSupportedValueType reports whether raw names a value type clients may set.
func IsSupportedValueType(raw string) bool {
	return raw == string(ValueBoolean) || raw == string(ValueRange)
}

// Value is a recorded or default value: a boolean or a range integer.
// The zero Value encodes as JSON null.
type Value struct {
	Type ValueType
	Bool bool
	Int  int
}

func BoolValue(b bool) Value { return Value{Type: ValueBoolean, Bool: b} }
func RangeValue(n int) Value { return Value{Type: ValueRange, Int: n} }

func (v Value) IsNull() bool { return v.Type == "" }

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Type {
	case ValueBoolean:
		return json.Marshal(v.Bool)
	case ValueRange:
		return json.Marshal(v.Int)
	default:
		return []byte("null"), nil
	}
}

// Config holds the normalized settings of a trackable. Only the default is
// stored; range bounds are implied by the value type.
type Config struct {
	Default Value
}

type configJSON struct {
	Default Value `json:"default"`
	Min     *int  `json:"min,omitempty"`
	Max     *int  `json:"max,omitempty"`
}

func (c Config) MarshalJSON() ([]byte, error) {
	out := configJSON{Default: c.Default}
	if c.Default.Type == ValueRange {
		lo, hi := RangeMin, RangeMax
		out.Min, out.Max = &lo, &hi
	}
	return json.Marshal(out)
}

// fields returns the config in its loose map form so it can be normalized
// again under a different value type.
func (c Config) fields() map[string]any {
	switch c.Default.Type {
	case ValueBoolean:
		return map[string]any{"default": c.Default.Bool}
	case ValueRange:
		return map[string]any{"default": float64(c.Default.Int), "min": float64(RangeMin), "max": float64(RangeMax)}
	default:
		return map[string]any{}
	}
}

// NormalizeConfig builds the typed config for valueType from a loosely typed
// object. Boolean defaults fall back to false; range defaults are truncated
// and clamped into [RangeMin, RangeMax], falling back to RangeDefault.
func NormalizeConfig(valueType ValueType, raw map[string]any) Config {
	if valueType == ValueBoolean {
		b, _ := raw["default"].(bool)
		return Config{Default: BoolValue(b)}
	}
	n := RangeDefault
	if f, ok := finiteNumber(raw["default"]); ok {
		n = clampRange(f)
	}
	return Config{Default: RangeValue(n)}
}

// decodeConfig parses a stored config_json blob. Garbage decodes as an
// empty object and therefore as the type's defaults.
func decodeConfig(valueType ValueType, blob string) Config {
	var raw map[string]any
	if err := json.Unmarshal([]byte(blob), &raw); err != nil || raw == nil {
		raw = map[string]any{}
	}
	return NormalizeConfig(valueType, raw)
}

func encodeConfig(c Config) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	return string(b), nil
}

// DefaultValueFor returns the value a trackable has on days without an entry.
func DefaultValueFor(t *Trackable) Value {
	d := t.Config.Default
	if t.ValueType == ValueBoolean {
		if d.Type == ValueBoolean {
			return BoolValue(d.Bool)
		}
		return BoolValue(false)
	}
	if d.Type == ValueRange {
		return RangeValue(clampRange(float64(d.Int)))
	}
	return RangeValue(RangeDefault)
}

// NormalizeValue validates an incoming value against the trackable's type.
func NormalizeValue(raw any, t *Trackable) (Value, error) {
	switch t.ValueType {
	case ValueBoolean:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, fmt.Errorf("%w: expected boolean", ErrInvalidValue)
		}
		return BoolValue(b), nil
	case ValueRange:
		f, ok := numeric(raw)
		if !ok || f != math.Trunc(f) {
			return Value{}, fmt.Errorf("%w: expected integer", ErrInvalidValue)
		}
		if f < RangeMin || f > RangeMax {
			return Value{}, fmt.Errorf("%w: expected %d..%d", ErrOutOfRange, RangeMin, RangeMax)
		}
		return RangeValue(int(f)), nil
	default:
		return Value{}, ErrInvalidValue
	}
}

func clampRange(f float64) int {
	f = math.Trunc(f)
	if f < RangeMin {
		return RangeMin
	}
	if f > RangeMax {
		return RangeMax
	}
	return int(f)
}

// finiteNumber accepts only real JSON numbers.
func finiteNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// numeric is finiteNumber plus numeric strings such as "4".
func numeric(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	return finiteNumber(v)
}
