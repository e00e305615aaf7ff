package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/llmbuddy/promptledger/pkg/models"
)

func rec(id, text string) *models.PromptRecord {
	r := models.NewPromptRecord(text, "Claude", "")
	r.ID = id
	return r
}

func TestMerge_FirstSeenWins(t *testing.T) {
	first := rec("A", "original text")
	dupe := rec("A", "different text")
	other := rec("B", "second record")

	col := Merge([]*models.PromptRecord{first}, []*models.PromptRecord{dupe, other})

	assert.Equal(t, 2, col.Len())
	assert.Equal(t, "original text", col.Get("A").PromptText)
	assert.Equal(t, "second record", col.Get("B").PromptText)
}

func TestMerge_IdempotentReimport(t *testing.T) {
	batch := []*models.PromptRecord{rec("A", "a"), rec("B", "b")}

	col := Merge(batch, batch)
	assert.Equal(t, 2, col.Len())

	// Merging the merged output with the same batch again changes nothing.
	col2 := Merge(col.Records(), batch)
	assert.Equal(t, 2, col2.Len())
}

func TestMerge_InsertionOrder(t *testing.T) {
	col := Merge(
		[]*models.PromptRecord{rec("C", "c"), rec("A", "a")},
		[]*models.PromptRecord{rec("B", "b"), rec("A", "a-again")},
	)

	ids := make([]string, 0, col.Len())
	for _, r := range col.Records() {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"C", "A", "B"}, ids)
}

func TestCollection_Remove(t *testing.T) {
	col := Merge([]*models.PromptRecord{rec("A", "a"), rec("B", "b")})

	col.Remove("A")
	assert.Equal(t, 1, col.Len())
	assert.Nil(t, col.Get("A"))

	// Removing an absent id is a no-op.
	col.Remove("A")
	assert.Equal(t, 1, col.Len())
}

func TestCollection_SortedByTimeDesc(t *testing.T) {
	older := rec("old", "old")
	older.Timestamp = older.Timestamp.Add(-3600e9)
	newer := rec("new", "new")

	col := Merge([]*models.PromptRecord{older, newer})
	sorted := col.SortedByTimeDesc()
	assert.Equal(t, "new", sorted[0].ID)
	assert.Equal(t, "old", sorted[1].ID)

	// The backing order is untouched.
	assert.Equal(t, "old", col.Records()[0].ID)
}

func TestCollection_ForFile(t *testing.T) {
	a := rec("A", "a")
	a.AssociateFile("x.go", 10)
	b := rec("B", "b")

	col := Merge([]*models.PromptRecord{a, b})
	hits := col.ForFile("x.go")
	assert.Len(t, hits, 1)
	assert.Equal(t, "A", hits[0].ID)
	assert.Empty(t, col.ForFile("y.go"))
}

func TestCollection_Search(t *testing.T) {
	a := rec("A", "refactor the Parser")
	b := rec("B", "unrelated")
	b.Description = "notes on the parser rewrite"

	col := Merge([]*models.PromptRecord{a, b})
	assert.Len(t, col.Search("parser"), 2)
	assert.Empty(t, col.Search("nomatch"))
}
