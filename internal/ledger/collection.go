// Package ledger holds the canonical prompt collection and the active
// prompt session built on top of the store backends.
package ledger

import (
	"sort"
	"strings"

	"github.com/llmbuddy/promptledger/pkg/models"
)

// Collection is the canonical in-memory set of prompt records, ordered by
// merge insertion. Identity is the record ID; the first record seen for an
// ID is the one that stays.
type Collection struct {
	records []*models.PromptRecord
	byID    map[string]*models.PromptRecord
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{byID: make(map[string]*models.PromptRecord)}
}

// Add inserts rec unless a record with the same ID is already present.
// Returns true when the record was added.
func (c *Collection) Add(rec *models.PromptRecord) bool {
	if _, exists := c.byID[rec.ID]; exists {
		return false
	}
	c.records = append(c.records, rec)
	c.byID[rec.ID] = rec
	return true
}

// Get returns the record with the given ID, or nil.
func (c *Collection) Get(id string) *models.PromptRecord {
	return c.byID[id]
}

// Remove deletes the record with the given ID. Removing an absent ID is a
// no-op.
func (c *Collection) Remove(id string) {
	if _, exists := c.byID[id]; !exists {
		return
	}
	delete(c.byID, id)
	for i, rec := range c.records {
		if rec.ID == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			break
		}
	}
}

// Len returns the number of records.
func (c *Collection) Len() int {
	return len(c.records)
}

// Records returns the records in merge insertion order. The slice is a
// copy; the records themselves are shared.
func (c *Collection) Records() []*models.PromptRecord {
	out := make([]*models.PromptRecord, len(c.records))
	copy(out, c.records)
	return out
}

// SortedByTimeDesc returns the records newest first. Storage order is merge
// order; chronological order is a display concern.
func (c *Collection) SortedByTimeDesc() []*models.PromptRecord {
	out := c.Records()
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// ForFile returns every record associated with path.
func (c *Collection) ForFile(path string) []*models.PromptRecord {
	var out []*models.PromptRecord
	for _, rec := range c.records {
		if rec.HasFile(path) {
			out = append(out, rec)
		}
	}
	return out
}

// Search returns records whose text or description contains query,
// case-insensitive.
func (c *Collection) Search(query string) []*models.PromptRecord {
	q := strings.ToLower(query)
	var out []*models.PromptRecord
	for _, rec := range c.records {
		if strings.Contains(strings.ToLower(rec.PromptText), q) ||
			strings.Contains(strings.ToLower(rec.Description), q) {
			out = append(out, rec)
		}
	}
	return out
}

// Merge folds the given record lists into one canonical collection. Lists
// are consumed in argument order and each list in element order; the first
// record seen for an ID wins and later duplicates are dropped, so repeat
// imports are idempotent.
func Merge(lists ...[]*models.PromptRecord) *Collection {
	col := NewCollection()
	for _, list := range lists {
		for _, rec := range list {
			col.Add(rec)
		}
	}
	return col
}
