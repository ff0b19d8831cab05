// Package recommend ranks catalog foods against a user's goal and
// dietary restrictions.
package recommend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nutrisolve/nutrichat/internal/domain"
	"github.com/nutrisolve/nutrichat/internal/index"
)

const defaultLimit = 5

// Goal boost thresholds, matching the trained ranking heuristics.
const (
	weightLossMaxCalories = 300
	weightLossMinProtein  = 15
	muscleGainMinProtein  = 20
	heartMaxSodium        = 500
	heartMinFiber         = 5
)

// Catalog exposes the loaded food record set.
type Catalog interface {
	Records() []domain.FoodRecord
}

// Searcher narrows candidates by a free-text query.
type Searcher interface {
	Search(query string, topN int) []index.Match
}

// Service ranks meals for a user profile.
type Service struct {
	catalog Catalog
	search  Searcher
	limit   int
}

// New creates a recommendation service.
func New(catalog Catalog, search Searcher) *Service {
	return &Service{catalog: catalog, search: search, limit: defaultLimit}
}

// WithLimit overrides the default result count.
func (s *Service) WithLimit(limit int) *Service {
	if limit > 0 {
		s.limit = limit
	}
	return s
}

// Recommend returns up to limit foods ranked by fit score for the profile.
// A non-empty query first narrows candidates via lexical retrieval; an empty
// query considers the whole catalog.
func (s *Service) Recommend(profile domain.Profile, query string, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		limit = s.limit
	}

	candidates := s.candidates(query)
	if len(candidates) == 0 {
		if s.catalog == nil || len(s.catalog.Records()) == 0 {
			return nil, domain.ErrDatasetNotLoaded
		}
		return nil, nil
	}

	excluded := excludedCategories(profile.Restrictions)

	recs := make([]domain.Recommendation, 0, len(candidates))
	for _, rec := range candidates {
		if _, skip := excluded[strings.ToLower(rec.Category)]; skip {
			continue
		}
		score, reason := fitScore(rec.Nutrients, profile.Goal)
		recs = append(recs, domain.Recommendation{Food: rec, Score: score, Reason: reason})
	}

	// Highest score first; ties keep candidate order.
	sort.SliceStable(recs, func(a, b int) bool {
		return recs[a].Score > recs[b].Score
	})

	if len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (s *Service) candidates(query string) []domain.FoodRecord {
	if strings.TrimSpace(query) != "" && s.search != nil {
		matches := s.search.Search(query, s.catalogSize())
		out := make([]domain.FoodRecord, len(matches))
		for i, m := range matches {
			out[i] = m.Record
		}
		return out
	}
	if s.catalog == nil {
		return nil
	}
	return s.catalog.Records()
}

func (s *Service) catalogSize() int {
	if s.catalog == nil {
		return 0
	}
	return len(s.catalog.Records())
}

// fitScore is the nutrient-density base score with goal boosts applied,
// clamped to [0, 1].
func fitScore(n domain.Nutrients, goal domain.Goal) (float64, string) {
	// Density lands roughly in [0, 0.5) for real foods; scale toward (0, 1).
	score := n.Density() * 2
	reason := "balanced nutrient density"

	switch goal {
	case domain.GoalWeightLoss:
		if n.Calories < weightLossMaxCalories && n.ProteinG > weightLossMinProtein {
			score *= 1.2
			reason = fmt.Sprintf("low calorie (%.0f kcal) and high protein (%.0fg)", n.Calories, n.ProteinG)
		}
	case domain.GoalMuscleGain:
		if n.ProteinG > muscleGainMinProtein {
			score *= 1.3
			reason = fmt.Sprintf("high protein (%.0fg per serving)", n.ProteinG)
		}
	case domain.GoalHeartHealth:
		if n.SodiumMg < heartMaxSodium && n.FiberG > heartMinFiber {
			score *= 1.2
			reason = fmt.Sprintf("low sodium (%.0fmg) and high fiber (%.0fg)", n.SodiumMg, n.FiberG)
		}
	case domain.GoalNone:
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score, reason
}

// excludedCategories maps restriction names to the catalog categories they rule out.
func excludedCategories(restrictions []string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, r := range restrictions {
		switch strings.ToLower(strings.TrimSpace(r)) {
		case "vegan":
			out["proteins"] = struct{}{}
			out["dairy"] = struct{}{}
		case "vegetarian":
			out["proteins"] = struct{}{}
		case "dairy-free", "lactose intolerant":
			out["dairy"] = struct{}{}
		case "nut-free", "nut allergy":
			out["nuts_seeds"] = struct{}{}
		case "gluten-free":
			out["grains"] = struct{}{}
		}
	}
	return out
}
