package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/nutrisolve/nutrichat/internal/domain"
)

// Column aliases per logical field. Dataset exports disagree on header
// naming (FoodData Central vs the legacy SR format), so resolution is
// alias-driven and case-insensitive.
var (
	idAliases          = []string{"fdc_id", "id", "ndb_no"}
	descriptionAliases = []string{"description", "name", "food_name", "shrt_desc"}
	categoryAliases    = []string{"food_category", "category", "group", "fdgrp_desc"}

	caloriesAliases = []string{"calories", "energ_kcal", "energy_kcal", "kcal"}
	proteinAliases  = []string{"protein_g", "protein_(g)", "protein"}
	fatAliases      = []string{"fat_g", "lipid_tot_(g)", "total_fat"}
	carbsAliases    = []string{"carbs_g", "carbohydrt_(g)", "carbohydrates"}
	fiberAliases    = []string{"fiber_g", "fiber_td_(g)", "fiber"}
	sugarsAliases   = []string{"sugars_g", "sugar_tot_(g)", "sugars"}
	sodiumAliases   = []string{"sodium_mg", "sodium_(mg)", "sodium"}
)

// columns holds resolved header indexes; -1 means the column is absent.
type columns struct {
	id, description, category                            int
	calories, protein, fat, carbs, fiber, sugars, sodium int
}

// Load reads a delimited food dataset, deduplicates by lower-cased
// description, and caps the result at maxRecords after deduplication.
func Load(path string, maxRecords int, logger *zap.Logger) (*Catalog, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	catalog, err := Read(f, maxRecords, logger)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return catalog, nil
}

// Read parses delimited food records from r. Malformed rows are skipped
// with a warning; a missing description column is fatal.
func Read(r io.Reader, maxRecords int, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1 // tolerate ragged rows, validated per row below

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := resolveColumns(header)
	if cols.description < 0 {
		return nil, fmt.Errorf("no description column found in header %v", header)
	}

	seen := make(map[string]struct{})
	var records []domain.FoodRecord
	skipped := 0

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			logger.Warn("Skipping malformed dataset row", zap.Error(err))
			continue
		}

		rec, ok := parseRow(row, cols)
		if !ok {
			skipped++
			continue
		}

		key := rec.DedupKey()
		if key == "" {
			skipped++
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		records = append(records, rec)
		if maxRecords > 0 && len(records) >= maxRecords {
			break
		}
	}

	logger.Info("Food dataset loaded",
		zap.Int("records", len(records)),
		zap.Int("skipped", skipped),
	)

	return NewCatalog(records), nil
}

func resolveColumns(header []string) columns {
	cols := columns{
		id: -1, description: -1, category: -1,
		calories: -1, protein: -1, fat: -1, carbs: -1,
		fiber: -1, sugars: -1, sodium: -1,
	}
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		switch {
		case cols.id < 0 && matchesAlias(key, idAliases):
			cols.id = i
		case cols.description < 0 && matchesAlias(key, descriptionAliases):
			cols.description = i
		case cols.category < 0 && matchesAlias(key, categoryAliases):
			cols.category = i
		case cols.calories < 0 && matchesAlias(key, caloriesAliases):
			cols.calories = i
		case cols.protein < 0 && matchesAlias(key, proteinAliases):
			cols.protein = i
		case cols.fat < 0 && matchesAlias(key, fatAliases):
			cols.fat = i
		case cols.carbs < 0 && matchesAlias(key, carbsAliases):
			cols.carbs = i
		case cols.fiber < 0 && matchesAlias(key, fiberAliases):
			cols.fiber = i
		case cols.sugars < 0 && matchesAlias(key, sugarsAliases):
			cols.sugars = i
		case cols.sodium < 0 && matchesAlias(key, sodiumAliases):
			cols.sodium = i
		}
	}
	return cols
}

func matchesAlias(key string, aliases []string) bool {
	for _, a := range aliases {
		if key == a {
			return true
		}
	}
	return false
}

func parseRow(row []string, cols columns) (domain.FoodRecord, bool) {
	desc := field(row, cols.description)
	if strings.TrimSpace(desc) == "" {
		return domain.FoodRecord{}, false
	}

	return domain.FoodRecord{
		ID:          field(row, cols.id),
		Description: strings.TrimSpace(desc),
		Category:    strings.TrimSpace(field(row, cols.category)),
		Nutrients: domain.Nutrients{
			Calories: numField(row, cols.calories),
			ProteinG: numField(row, cols.protein),
			FatG:     numField(row, cols.fat),
			CarbsG:   numField(row, cols.carbs),
			FiberG:   numField(row, cols.fiber),
			SugarsG:  numField(row, cols.sugars),
			SodiumMg: numField(row, cols.sodium),
		},
	}, true
}

func field(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func numField(row []string, idx int) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(field(row, idx)), 64)
	if err != nil {
		return 0
	}
	return v
}
