package order

import (
	"errors"
	"fmt"
	"testing"

	"outliner-cli/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func sibs(pairs ...any) []model.Note {
	out := []model.Note{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.Note{ID: pairs[i].(string), OrderIndex: pairs[i+1].(int)})
	}
	return out
}

func TestPlace_HeadInsertRenumbersEverySibling(t *testing.T) {
	p, err := Place(sibs("A", 0, "B", 1), "", "A")
	require.NoError(t, err)
	assert.Equal(t, 0, p.OrderIndex)
	assert.Equal(t, []model.OrderUpdate{{ID: "A", OrderIndex: 1}, {ID: "B", OrderIndex: 2}}, p.Updates)
	assert.False(t, p.Fallback())
}

func TestPlace_TailInsert(t *testing.T) {
	p, err := Place(sibs("A", 0), "A", "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.OrderIndex)
	assert.Empty(t, p.Updates)
}

func TestPlace_TightGapCascadesFromNext(t *testing.T) {
	p, err := Place(sibs("A", 0, "B", 1), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1, p.OrderIndex)
	assert.Equal(t, []model.OrderUpdate{{ID: "B", OrderIndex: 2}}, p.Updates)
}

func TestPlace_WideGapNoRenumber(t *testing.T) {
	p, err := Place(sibs("A", 0, "B", 5), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1, p.OrderIndex)
	assert.Empty(t, p.Updates)
}

func TestPlace_EmptyGroup(t *testing.T) {
	p, err := Place(nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, 0, p.OrderIndex)
	assert.Empty(t, p.Updates)
}

func TestPlace_TailWithoutNextUsesSuccessor(t *testing.T) {
	// Callers that name only prev still get a consistent sequence.
	p, err := Place(sibs("A", 0, "B", 1, "C", 2), "A", "")
	require.NoError(t, err)
	assert.Equal(t, 1, p.OrderIndex)
	assert.Equal(t, []model.OrderUpdate{{ID: "B", OrderIndex: 2}, {ID: "C", OrderIndex: 3}}, p.Updates)
}

func TestPlace_InputOrderDoesNotMatter(t *testing.T) {
	in := sibs("B", 1, "A", 0)
	p, err := Place(in, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1, p.OrderIndex)
	// Place never reorders the caller's slice.
	assert.Equal(t, "B", in[0].ID)
}

func TestPlace_StaleReferenceIsValidationError(t *testing.T) {
	_, err := Place(sibs("A", 0), "gone", "")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "previous", ve.Role)
	assert.Equal(t, "gone", ve.ID)

	_, err = Place(sibs("A", 0), "A", "gone")
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "next", ve.Role)
}

func TestPlace_FallbackOnDuplicateIndexes(t *testing.T) {
	p, err := Place(sibs("A", 3, "B", 3), "A", "B")
	require.NoError(t, err)
	require.True(t, p.Fallback())
	assert.Equal(t, 4, p.OrderIndex)
	assert.Empty(t, p.Updates)
}

func TestPlace_FallbackWhenNextIsNotSuccessor(t *testing.T) {
	p, err := Place(sibs("A", 0, "B", 1, "C", 2), "A", "C")
	require.NoError(t, err)
	require.True(t, p.Fallback())
	assert.Equal(t, 3, p.OrderIndex)
}

func TestShiftFrom(t *testing.T) {
	ups := ShiftFrom(sibs("A", 0, "B", 2, "C", 3), 2)
	assert.Equal(t, []model.OrderUpdate{{ID: "B", OrderIndex: 3}, {ID: "C", OrderIndex: 4}}, ups)
	assert.Nil(t, ShiftFrom(sibs("A", 0), 5))
}

func TestTail(t *testing.T) {
	assert.Equal(t, 0, Tail(nil))
	assert.Equal(t, 8, Tail(sibs("A", 7, "B", 2)))
}

// applyPlacement returns the sibling group after inserting "new" per p.
func applyPlacement(group []model.Note, p Placement) []model.Note {
	byID := map[string]int{}
	for _, u := range p.Updates {
		byID[u.ID] = u.OrderIndex
	}
	out := make([]model.Note, 0, len(group)+1)
	for _, n := range group {
		if idx, ok := byID[n.ID]; ok {
			n.OrderIndex = idx
		}
		out = append(out, n)
	}
	return append(out, model.Note{ID: "new", OrderIndex: p.OrderIndex})
}

func TestPlace_ValidInputKeepsGroupStrictlyIncreasing(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		group := make([]model.Note, 0, n)
		idx := rapid.IntRange(0, 3).Draw(t, "start")
		for i := 0; i < n; i++ {
			group = append(group, model.Note{ID: fmt.Sprintf("n%d", i), OrderIndex: idx})
			idx += rapid.IntRange(1, 4).Draw(t, "gap")
		}

		prevID, nextID := "", ""
		if n > 0 {
			// -1 means head insert.
			pos := rapid.IntRange(-1, n-1).Draw(t, "pos")
			if pos >= 0 {
				prevID = group[pos].ID
			}
			if pos+1 < n {
				nextID = group[pos+1].ID
			}
		}

		p, err := Place(group, prevID, nextID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Fallback() {
			t.Fatalf("valid input triggered fallback: %v", p.Anomaly)
		}

		after := applyPlacement(group, p)
		SortSiblings(after)
		for i := 1; i < len(after); i++ {
			if after[i-1].OrderIndex >= after[i].OrderIndex {
				t.Fatalf("order not strictly increasing at %d: %+v", i, after)
			}
		}
		// The new note sits right after prev (or first on a head insert).
		want := 0
		for i := range group {
			if group[i].ID == prevID {
				want = i + 1
			}
		}
		if after[want].ID != "new" {
			t.Fatalf("new note at wrong position: want %d, got %+v", want, after)
		}
	})
}
