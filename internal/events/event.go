package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// OperationKind is the change-event operation tag.
type OperationKind string

const (
	OpCreate OperationKind = "c"
	OpUpdate OperationKind = "u"
	OpDelete OperationKind = "d"
)

// ParseOperationKind accepts the short tags used in the change logs
// ("c", "u", "d") as well as their long forms.
func ParseOperationKind(tag string) (OperationKind, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "c", "create":
		return OpCreate, nil
	case "u", "update":
		return OpUpdate, nil
	case "d", "delete":
		return OpDelete, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidOperationKind, tag)
	}
}

// String returns the long form of the kind, e.g. "update".
func (k OperationKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return string(k)
	}
}

// RecordID identifies the entity a change event refers to. Logs carry it
// either as a JSON string or a JSON number.
type RecordID string

// UnmarshalJSON accepts both string and numeric ids.
func (id *RecordID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("record id: want string or number, got %s", b)
	}
	*id = RecordID(n.String())
	return nil
}

// ChangeEvent is one raw record from an entity change log.
//
// The payload lives under a field whose name depends on the operation kind
// ("data" for creates, "set" for updates and deletes), so every field other
// than id, op and ts is kept in Payloads for the table builder to pick from.
type ChangeEvent struct {
	ID RecordID
	Op string
	TS *int64

	// RawTS holds the ts value as written when it is present but is not a
	// number that fits an epoch offset. TS is nil in that case.
	RawTS json.RawMessage

	Payloads map[string]json.RawMessage
}

// Payload returns the raw nested payload stored under field.
func (e ChangeEvent) Payload(field string) (json.RawMessage, bool) {
	raw, ok := e.Payloads[field]
	if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

// UnmarshalJSON decodes a change-event document.
func (e *ChangeEvent) UnmarshalJSON(b []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(b, &fields); err != nil {
		return fmt.Errorf("change event: %w", err)
	}

	var ev ChangeEvent
	if raw, ok := fields["id"]; ok {
		if err := json.Unmarshal(raw, &ev.ID); err != nil {
			return fmt.Errorf("change event: %w", err)
		}
		delete(fields, "id")
	}
	if raw, ok := fields["op"]; ok {
		if err := json.Unmarshal(raw, &ev.Op); err != nil {
			return fmt.Errorf("change event: field \"op\": %w", err)
		}
		delete(fields, "op")
	}
	if raw, ok := fields["ts"]; ok {
		ts, ok := decodeRawTimestamp(raw)
		if ok {
			ev.TS = ts
		} else {
			ev.RawTS = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
		}
		delete(fields, "ts")
	}
	ev.Payloads = fields

	*e = ev
	return nil
}

// MarshalJSON writes the event back in its log form.
func (e ChangeEvent) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payloads)+3)
	for k, v := range e.Payloads {
		out[k] = v
	}
	out["id"] = string(e.ID)
	out["op"] = e.Op
	switch {
	case e.TS != nil:
		out["ts"] = *e.TS
	case len(e.RawTS) > 0:
		out["ts"] = e.RawTS
	}
	return json.Marshal(out)
}

// Timestamp converts the event's ts to a UTC time in unit. An absent or null
// ts yields nil without error. A ts that is not numeric or out of range
// yields a *TimestampConversionError.
func (e ChangeEvent) Timestamp(unit TimeUnit) (*time.Time, error) {
	if e.TS == nil {
		if len(e.RawTS) > 0 {
			return nil, &TimestampConversionError{Text: string(e.RawTS), Unit: unit, Err: ErrTimestampNotNumeric}
		}
		return nil, nil
	}
	t, err := ConvertTimestamp(*e.TS, unit)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Decode parses one change-event document.
func Decode(data []byte) (ChangeEvent, error) {
	var ev ChangeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ChangeEvent{}, err
	}
	return ev, nil
}

// decodeRawTimestamp reads a numeric ts. Fractions are truncated. It reports
// false for anything that is neither null nor an int64-sized number.
func decodeRawTimestamp(raw json.RawMessage) (*int64, bool) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, false
	}
	if i, err := n.Int64(); err == nil {
		return &i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, false
	}
	i := int64(f)
	return &i, true
}
