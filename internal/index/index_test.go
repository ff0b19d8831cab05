package index

import (
	"testing"

	"github.com/nutrisolve/nutrichat/internal/domain"
)

func testRecords() []domain.FoodRecord {
	return []domain.FoodRecord{
		{ID: "1", Description: "Chicken breast, grilled", Category: "proteins"},
		{ID: "2", Description: "Oatmeal with berries", Category: "grains"},
		{ID: "3", Description: "Greek yogurt, plain", Category: "dairy"},
		{ID: "4", Description: "Chicken thigh, roasted", Category: "proteins"},
		{ID: "5", Description: "Lentil soup", Category: "legumes"},
	}
}

func TestSearch_EmptyIndexReturnsNothing(t *testing.T) {
	ix := Build(nil)
	if got := ix.Search("high protein breakfast", 3); got != nil {
		t.Fatalf("expected nil result, got %v", got)
	}
}

func TestSearch_RanksMatchingRecordsFirst(t *testing.T) {
	ix := Build(testRecords())

	got := ix.Search("grilled chicken", 3)
	if len(got) == 0 {
		t.Fatal("expected matches for grilled chicken")
	}
	if got[0].Record.ID != "1" {
		t.Errorf("top match = %s, want record 1", got[0].Record.ID)
	}
	for _, m := range got {
		if m.Score <= 0 {
			t.Errorf("zero-score match leaked through: %+v", m)
		}
	}
}

func TestSearch_DiscardsNonMatching(t *testing.T) {
	ix := Build(testRecords())

	got := ix.Search("yogurt", 5)
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 match, got %d", len(got))
	}
	if got[0].Record.ID != "3" {
		t.Errorf("match = %s, want record 3", got[0].Record.ID)
	}
}

func TestSearch_RespectsTopN(t *testing.T) {
	ix := Build(testRecords())

	got := ix.Search("chicken", 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 match with topN=1, got %d", len(got))
	}
}

func TestSearch_TiesKeepRecordOrder(t *testing.T) {
	records := []domain.FoodRecord{
		{ID: "a", Description: "quinoa salad", Category: "grains"},
		{ID: "b", Description: "quinoa salad", Category: "grains"},
	}
	ix := Build(records)

	got := ix.Search("quinoa", 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(got))
	}
	if got[0].Record.ID != "a" || got[1].Record.ID != "b" {
		t.Errorf("tie order = %s,%s; want a,b", got[0].Record.ID, got[1].Record.ID)
	}
}

func TestSearch_QueryWithNoKnownTerms(t *testing.T) {
	ix := Build(testRecords())
	if got := ix.Search("xylophone", 3); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestSearch_ZeroTopN(t *testing.T) {
	ix := Build(testRecords())
	if got := ix.Search("chicken", 0); got != nil {
		t.Fatalf("expected nil for topN=0, got %v", got)
	}
}

func TestBuild_IndexSizeEqualsRecordCount(t *testing.T) {
	records := testRecords()
	ix := Build(records)
	if ix.Len() != len(records) {
		t.Fatalf("index size = %d, want %d", ix.Len(), len(records))
	}
}

func TestHolder_SwapsAtomically(t *testing.T) {
	h := NewHolder(nil)
	if h.Load().Len() != 0 {
		t.Fatal("empty holder should serve an empty index")
	}

	h.Store(Build(testRecords()))
	if h.Load().Len() != 5 {
		t.Fatalf("after swap, index size = %d, want 5", h.Load().Len())
	}
}
