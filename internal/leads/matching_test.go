package leads

import (
	"testing"

	"github.com/google/uuid"
)

func ratingPtr(v float64) *float64 {
	return &v
}

func TestFilterBySpecialtiesRequiresFullCoverage(t *testing.T) {
	plumber := Candidate{UserID: uuid.New(), Specialties: []string{"plumbing"}}
	generalist := Candidate{UserID: uuid.New(), Specialties: []string{"plumbing", "electrical", "roofing"}}
	electrician := Candidate{UserID: uuid.New(), Specialties: []string{"electrical"}}

	got := FilterBySpecialties([]Candidate{plumber, generalist, electrician}, []string{"plumbing", "electrical"})
	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].UserID != generalist.UserID {
		t.Fatalf("expected generalist to survive, got %s", got[0].UserID)
	}
}

func TestFilterBySpecialtiesEmptyRequirementKeepsEveryone(t *testing.T) {
	candidates := []Candidate{
		{UserID: uuid.New()},
		{UserID: uuid.New(), Specialties: []string{"roofing"}},
	}
	got := FilterBySpecialties(candidates, nil)
	if len(got) != len(candidates) {
		t.Fatalf("expected all %d candidates, got %d", len(candidates), len(got))
	}
}

func TestRankOrdersByRatingThenReviewCount(t *testing.T) {
	low := Candidate{UserID: uuid.New(), AverageRating: ratingPtr(3.5), ReviewCount: 100}
	highFewReviews := Candidate{UserID: uuid.New(), AverageRating: ratingPtr(4.8), ReviewCount: 2}
	highManyReviews := Candidate{UserID: uuid.New(), AverageRating: ratingPtr(4.8), ReviewCount: 40}
	unrated := Candidate{UserID: uuid.New(), ReviewCount: 500}

	ranked := Rank([]Candidate{low, unrated, highFewReviews, highManyReviews})

	want := []uuid.UUID{highManyReviews.UserID, highFewReviews.UserID, low.UserID, unrated.UserID}
	for i, id := range want {
		if ranked[i].UserID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].UserID)
		}
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	first := Candidate{UserID: uuid.New(), AverageRating: ratingPtr(1)}
	second := Candidate{UserID: uuid.New(), AverageRating: ratingPtr(5)}
	input := []Candidate{first, second}

	Rank(input)

	if input[0].UserID != first.UserID {
		t.Fatal("expected input slice untouched")
	}
}

func TestSelectContractorsCapsAtMaxMatches(t *testing.T) {
	candidates := make([]Candidate, 0, 5)
	for i := 0; i < 5; i++ {
		rating := float64(i)
		candidates = append(candidates, Candidate{UserID: uuid.New(), AverageRating: &rating})
	}

	selected := SelectContractors(candidates, nil)
	if len(selected) != MaxMatches {
		t.Fatalf("expected %d selected, got %d", MaxMatches, len(selected))
	}
	// Highest ratings first.
	if selected[0] != candidates[4].UserID {
		t.Fatalf("expected top-rated candidate first, got %s", selected[0])
	}
}

func TestSelectContractorsNoSurvivors(t *testing.T) {
	candidates := []Candidate{
		{UserID: uuid.New(), Specialties: []string{"plumbing"}},
	}
	selected := SelectContractors(candidates, []string{"roofing"})
	if len(selected) != 0 {
		t.Fatalf("expected no matches, got %d", len(selected))
	}
}
