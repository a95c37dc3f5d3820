package events

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecode(t *testing.T, doc string) ChangeEvent {
	t.Helper()
	ev, err := Decode([]byte(doc))
	require.NoError(t, err)
	return ev
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantID  RecordID
		wantOp  string
		wantTS  *int64
		payload string
	}{
		{
			name:    "create with string id",
			doc:     `{"id":"a1","op":"c","ts":1000,"data":{"card_id":"C1"}}`,
			wantID:  "a1",
			wantOp:  "c",
			wantTS:  ptr(int64(1000)),
			payload: "data",
		},
		{
			name:    "update with numeric id",
			doc:     `{"id":42,"op":"u","ts":2000,"set":{"credit_used":50}}`,
			wantID:  "42",
			wantOp:  "u",
			wantTS:  ptr(int64(2000)),
			payload: "set",
		},
		{
			name:    "null timestamp",
			doc:     `{"id":"x","op":"d","ts":null,"set":{}}`,
			wantID:  "x",
			wantOp:  "d",
			payload: "set",
		},
		{
			name:    "float timestamp truncated",
			doc:     `{"id":"x","op":"u","ts":1500.7,"set":{}}`,
			wantID:  "x",
			wantOp:  "u",
			wantTS:  ptr(int64(1500)),
			payload: "set",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := mustDecode(t, tt.doc)
			assert.Equal(t, tt.wantID, ev.ID)
			assert.Equal(t, tt.wantOp, ev.Op)
			assert.Equal(t, tt.wantTS, ev.TS)
			_, ok := ev.Payload(tt.payload)
			assert.True(t, ok, "payload %q missing", tt.payload)
			assert.NotContains(t, ev.Payloads, "id")
			assert.NotContains(t, ev.Payloads, "op")
			assert.NotContains(t, ev.Payloads, "ts")
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, doc := range []string{
		`not json`,
		`{"id":{"nested":true},"op":"c"}`,
	} {
		_, err := Decode([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestDecode_NonNumericTimestampIsKept(t *testing.T) {
	for _, doc := range []string{
		`{"id":"a","op":"c","ts":"yesterday","data":{}}`,
		`{"id":"a","op":"c","ts":{"epoch":1},"data":{}}`,
		`{"id":"a","op":"c","ts":1e30,"data":{}}`,
	} {
		ev, err := Decode([]byte(doc))
		require.NoError(t, err, doc)
		assert.Nil(t, ev.TS, doc)
		assert.NotEmpty(t, ev.RawTS, doc)
		assert.NotContains(t, ev.Payloads, "ts", doc)
	}
}

func TestChangeEvent_Timestamp(t *testing.T) {
	got, err := mustDecode(t, `{"id":"a","op":"c","ts":1000,"data":{}}`).Timestamp(UnitMillisecond)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1, 0).UTC(), *got)

	got, err = mustDecode(t, `{"id":"a","op":"c","data":{}}`).Timestamp(UnitMillisecond)
	assert.NoError(t, err)
	assert.Nil(t, got)

	_, err = mustDecode(t, `{"id":"a","op":"c","ts":4611686018427387904,"data":{}}`).Timestamp(UnitMillisecond)
	assert.ErrorIs(t, err, ErrTimestampOutOfRange)

	got, err = mustDecode(t, `{"id":"a","op":"c","ts":"not-a-ts","data":{}}`).Timestamp(UnitMillisecond)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTimestampNotNumeric)
	var convErr *TimestampConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, `"not-a-ts"`, convErr.Text)
	assert.Contains(t, err.Error(), "not-a-ts")
}

func TestPayload_NullIsAbsent(t *testing.T) {
	ev := mustDecode(t, `{"id":"a","op":"u","set":null}`)
	_, ok := ev.Payload("set")
	assert.False(t, ok)
}

func TestParseOperationKind(t *testing.T) {
	tests := []struct {
		in   string
		want OperationKind
	}{
		{"c", OpCreate},
		{"create", OpCreate},
		{"U", OpUpdate},
		{" update ", OpUpdate},
		{"d", OpDelete},
		{"delete", OpDelete},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseOperationKind(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseOperationKind("r")
	assert.ErrorIs(t, err, ErrInvalidOperationKind)
}

func TestSplit_PartitionCompleteness(t *testing.T) {
	ops := []string{"c", "u", "u", "d", "c", "u", "d", "c"}
	evts := make([]ChangeEvent, len(ops))
	for i, op := range ops {
		evts[i] = ChangeEvent{ID: RecordID(string(rune('a' + i))), Op: op}
	}

	p, err := Split(evts)
	require.NoError(t, err)
	assert.Equal(t, len(evts), p.Len())
	assert.Len(t, p.Create, 3)
	assert.Len(t, p.Update, 3)
	assert.Len(t, p.Delete, 2)

	seen := make(map[RecordID]int)
	for _, group := range [][]ChangeEvent{p.Create, p.Update, p.Delete} {
		for _, ev := range group {
			seen[ev.ID]++
		}
	}
	for _, ev := range evts {
		assert.Equal(t, 1, seen[ev.ID], "event %s", ev.ID)
	}

	// input order kept within a group
	assert.Equal(t, []RecordID{"b", "c", "f"}, ids(p.Update))
	assert.Equal(t, p.Update, p.Kind(OpUpdate))
}

func TestSplit_InvalidKind(t *testing.T) {
	evts := []ChangeEvent{
		{ID: "1", Op: "c"},
		{ID: "2", Op: "r"},
	}
	_, err := Split(evts)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidOperationKind)

	var kindErr *OperationKindError
	require.True(t, errors.As(err, &kindErr))
	assert.Equal(t, 1, kindErr.Index)
	assert.Equal(t, RecordID("2"), kindErr.ID)
	assert.Equal(t, "r", kindErr.Tag)
}

func TestSplit_Empty(t *testing.T) {
	p, err := Split(nil)
	require.NoError(t, err)
	assert.Zero(t, p.Len())
}

func TestConvertTimestamp(t *testing.T) {
	got, err := ConvertTimestamp(1000, UnitMillisecond)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1, 0).UTC(), got)

	got, err = ConvertTimestamp(2_500_000, UnitMicrosecond)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(2, 500_000_000).UTC(), got)
}

func TestConvertTimestamp_Errors(t *testing.T) {
	_, err := ConvertTimestamp(1<<62, UnitMillisecond)
	assert.ErrorIs(t, err, ErrTimestampOutOfRange)

	var convErr *TimestampConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, int64(1<<62), convErr.Raw)

	_, err = ConvertTimestamp(1, TimeUnit("ns"))
	assert.ErrorIs(t, err, ErrUnknownTimeUnit)
}

func TestParseTimeUnit(t *testing.T) {
	u, err := ParseTimeUnit("MIKROSECOND")
	require.NoError(t, err)
	assert.Equal(t, UnitMicrosecond, u)

	u, err = ParseTimeUnit("ms")
	require.NoError(t, err)
	assert.Equal(t, UnitMillisecond, u)

	_, err = ParseTimeUnit("fortnight")
	assert.ErrorIs(t, err, ErrUnknownTimeUnit)
}

func ids(evts []ChangeEvent) []RecordID {
	out := make([]RecordID, len(evts))
	for i, ev := range evts {
		out[i] = ev.ID
	}
	return out
}

func ptr[T any](v T) *T { return &v }
