// Package domain holds the core types of the nutrition chat service.
// It has no dependencies on other internal packages.
package domain

import "strings"

// FoodRecord is one deduplicated food catalog entry.
type FoodRecord struct {
	ID          string
	Description string
	Category    string
	Nutrients   Nutrients
}

// DedupKey returns the normalized description used to collapse duplicate
// rows during ingestion.
func (f FoodRecord) DedupKey() string {
	return strings.ToLower(strings.TrimSpace(f.Description))
}

// Document returns the text indexed for retrieval.
func (f FoodRecord) Document() string {
	if f.Category == "" {
		return strings.ToLower(f.Description)
	}
	return strings.ToLower(f.Description + " " + f.Category)
}

// Nutrients holds per-100g nutrient values.
type Nutrients struct {
	Calories float64
	ProteinG float64
	FatG     float64
	CarbsG   float64
	FiberG   float64
	SugarsG  float64
	SodiumMg float64
}

// Density is the protein-and-fiber density score used as the ranking
// baseline. The +1 keeps zero-calorie entries finite.
func (n Nutrients) Density() float64 {
	return (n.ProteinG + n.FiberG) / (n.Calories + 1)
}
