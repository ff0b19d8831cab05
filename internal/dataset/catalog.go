// Package dataset loads the food dataset into an immutable in-memory catalog.
package dataset

import "github.com/nutrisolve/nutrichat/internal/domain"

// Catalog is the deduplicated, size-capped food record set.
// Built once at startup; read-only for the process lifetime.
type Catalog struct {
	records []domain.FoodRecord
}

// NewCatalog wraps a record slice. The caller must not mutate records afterwards.
func NewCatalog(records []domain.FoodRecord) *Catalog {
	return &Catalog{records: records}
}

// Records returns the record set. Callers must treat it as read-only.
func (c *Catalog) Records() []domain.FoodRecord {
	return c.records
}

// Len returns the number of records.
func (c *Catalog) Len() int {
	return len(c.records)
}
