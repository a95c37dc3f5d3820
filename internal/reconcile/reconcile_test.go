package reconcile

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/ledger-reconciler/internal/entity"
	"github.com/dvloznov/ledger-reconciler/internal/events"
)

func ms(v int64) *time.Time {
	t := time.UnixMilli(v).UTC()
	return &t
}

func str(s string) *string     { return &s }
func num(f float64) *float64 { return &f }

func card(id string, op events.OperationKind, ts *time.Time) entity.CardRow {
	return entity.CardRow{RowMeta: entity.RowMeta{ID: events.RecordID(id), Op: op, TS: ts}}
}

// Scenario: a card is created, then its credit usage is updated by an event
// that does not repeat the card id.
func TestReconcile_BackfillsKeysFromCreate(t *testing.T) {
	create := card("1", events.OpCreate, ms(1000))
	create.CardID = str("C1")
	create.CardNumber = str("1111")

	update := card("1", events.OpUpdate, ms(2000))
	update.CreditUsed = num(50)

	rows, rep := Reconcile(entity.CardSchema, []entity.CardRow{create}, []entity.CardRow{update}, zerolog.Nop())

	require.Len(t, rows, 2)
	assert.Equal(t, events.OpCreate, rows[0].Op)
	assert.Equal(t, events.OpUpdate, rows[1].Op)
	assert.Equal(t, "C1", *rows[1].CardID)
	assert.Equal(t, "1111", *rows[1].CardNumber)
	assert.Equal(t, 50.0, *rows[1].CreditUsed)
	assert.Equal(t, Report{Creates: 1, Updates: 1}, rep)

	// inputs untouched
	assert.Nil(t, update.CardID)
}

func TestReconcile_UpdateKeysReplacedByCreate(t *testing.T) {
	create := card("1", events.OpCreate, ms(1000))
	create.CardID = str("C1")

	update := card("1", events.OpUpdate, ms(2000))
	update.CardID = str("C-stale")

	rows, _ := Reconcile(entity.CardSchema, []entity.CardRow{create}, []entity.CardRow{update}, zerolog.Nop())
	require.Len(t, rows, 2)
	assert.Equal(t, "C1", *rows[1].CardID)
	assert.Nil(t, rows[1].CardNumber, "create row had no card number")
}

// Scenario: an update referencing an unknown record id is kept with a
// null key.
func TestReconcile_UnmatchedUpdateKeepsNullKey(t *testing.T) {
	create := entity.SavingsRow{
		RowMeta:          entity.RowMeta{ID: "s1", Op: events.OpCreate, TS: ms(1000)},
		SavingsAccountID: str("S1"),
	}
	orphan := entity.SavingsRow{
		RowMeta:          entity.RowMeta{ID: "s9", Op: events.OpUpdate, TS: ms(500)},
		SavingsAccountID: str("S9"),
		Balance:          num(12),
	}

	rows, rep := Reconcile(entity.SavingsSchema, []entity.SavingsRow{create}, []entity.SavingsRow{orphan}, zerolog.Nop())

	require.Len(t, rows, 2)
	assert.Equal(t, events.RecordID("s9"), rows[0].ID)
	assert.Nil(t, rows[0].SavingsAccountID)
	assert.Equal(t, 12.0, *rows[0].Balance)
	assert.Equal(t, 1, rep.Unmatched)
}

func TestReconcile_PropagatedKeysMatchCreate(t *testing.T) {
	var creates, updates []entity.AccountRow
	for i, id := range []string{"a", "b", "c"} {
		creates = append(creates, entity.AccountRow{
			RowMeta:   entity.RowMeta{ID: events.RecordID(id), Op: events.OpCreate, TS: ms(int64(i))},
			AccountID: str("A-" + id),
		})
	}
	for i, id := range []string{"c", "x", "a", "a", "y"} {
		updates = append(updates, entity.AccountRow{
			RowMeta: entity.RowMeta{ID: events.RecordID(id), Op: events.OpUpdate, TS: ms(int64(10 + i))},
		})
	}

	rows, rep := Reconcile(entity.AccountSchema, creates, updates, zerolog.Nop())
	require.Len(t, rows, len(creates)+len(updates))
	assert.Equal(t, 2, rep.Unmatched)

	known := map[events.RecordID]string{"a": "A-a", "b": "A-b", "c": "A-c"}
	for _, r := range rows {
		if r.Op != events.OpUpdate {
			continue
		}
		want, ok := known[r.ID]
		if !ok {
			assert.Nil(t, r.AccountID, "record %s", r.ID)
			continue
		}
		require.NotNil(t, r.AccountID, "record %s", r.ID)
		assert.Equal(t, want, *r.AccountID)
	}
}

func TestReconcile_StableOrdering(t *testing.T) {
	creates := []entity.CardRow{
		card("1", events.OpCreate, ms(3000)),
		card("2", events.OpCreate, ms(1000)),
		card("3", events.OpCreate, nil),
	}
	updates := []entity.CardRow{
		card("1", events.OpUpdate, ms(1000)),
		card("2", events.OpUpdate, nil),
		card("2", events.OpUpdate, ms(3000)),
	}

	rows, _ := Reconcile(entity.CardSchema, creates, updates, zerolog.Nop())

	type key struct {
		id events.RecordID
		op events.OperationKind
	}
	got := make([]key, len(rows))
	for i, r := range rows {
		got[i] = key{r.ID, r.Op}
	}
	assert.Equal(t, []key{
		{"2", events.OpCreate}, // 1000, creates precede updates on ties
		{"1", events.OpUpdate}, // 1000
		{"1", events.OpCreate}, // 3000
		{"2", events.OpUpdate}, // 3000
		{"3", events.OpCreate}, // null
		{"2", events.OpUpdate}, // null
	}, got)

	for i := 1; i < len(rows); i++ {
		prev, cur := rows[i-1].TS, rows[i].TS
		if prev == nil {
			assert.Nil(t, cur, "null timestamps must sort last")
			continue
		}
		if cur != nil {
			assert.False(t, cur.Before(*prev), "row %d out of order", i)
		}
	}
}

func TestReconcile_DuplicateCreateFirstWins(t *testing.T) {
	first := card("1", events.OpCreate, ms(1000))
	first.CardID = str("C1")
	second := card("1", events.OpCreate, ms(1500))
	second.CardID = str("C2")
	update := card("1", events.OpUpdate, ms(2000))

	rows, rep := Reconcile(entity.CardSchema, []entity.CardRow{first, second}, []entity.CardRow{update}, zerolog.Nop())
	require.Len(t, rows, 3)
	assert.Equal(t, "C1", *rows[2].CardID)
	assert.Equal(t, 1, rep.DuplicateCreates)
}

func TestReconcile_Empty(t *testing.T) {
	rows, rep := Reconcile(entity.CardSchema, nil, nil, zerolog.Nop())
	assert.Empty(t, rows)
	assert.Equal(t, Report{}, rep)
}

func TestForwardFill(t *testing.T) {
	rows := []entity.CardRow{
		card("1", events.OpCreate, ms(1000)),
		card("1", events.OpUpdate, ms(2000)),
		card("1", events.OpUpdate, nil),
	}
	rows[0].CardNumber = str("1111")
	rows[1].CardID = str("C1")
	rows[1].CreditUsed = num(10)
	rows[2].Status = str("ACTIVE")

	filled := ForwardFill(entity.CardSchema, rows)
	require.Len(t, filled, 3)

	assert.Nil(t, filled[0].CardID, "leading null stays null")
	assert.Equal(t, "1111", *filled[1].CardNumber)
	assert.Equal(t, "C1", *filled[2].CardID)
	assert.Equal(t, 10.0, *filled[2].CreditUsed)
	assert.Equal(t, "ACTIVE", *filled[2].Status)
	assert.Equal(t, *ms(2000), *filled[2].TS)
	assert.Nil(t, filled[0].Status)

	// input untouched
	assert.Nil(t, rows[2].CardID)
}

func TestForwardFill_Idempotent(t *testing.T) {
	rows := []entity.SavingsRow{
		{RowMeta: entity.RowMeta{ID: "1", Op: events.OpCreate, TS: ms(1)}},
		{RowMeta: entity.RowMeta{ID: "1", Op: events.OpUpdate, TS: ms(2)}, Balance: num(5)},
		{RowMeta: entity.RowMeta{ID: "2", Op: events.OpCreate}, SavingsAccountID: str("S2")},
		{RowMeta: entity.RowMeta{ID: "2", Op: events.OpUpdate}, Status: str("ACTIVE")},
	}

	once := ForwardFill(entity.SavingsSchema, rows)
	twice := ForwardFill(entity.SavingsSchema, once)
	assert.Equal(t, once, twice)
}
