package leads

import (
	"sort"

	"github.com/google/uuid"
)

// MaxMatches caps how many contractors a lead is offered to.
const MaxMatches = 3

// Candidate is an approved contractor eligible for a lead's postal code.
type Candidate struct {
	UserID        uuid.UUID
	Specialties   []string
	AverageRating *float64
	ReviewCount   int
}

// FilterBySpecialties retains candidates whose specialty set covers every
// required tag. An empty requirement keeps everyone.
func FilterBySpecialties(candidates []Candidate, required []string) []Candidate {
	if len(required) == 0 {
		return candidates
	}
	out := make([]Candidate, 0, len(candidates))
	for _, candidate := range candidates {
		if hasAllSpecialties(candidate.Specialties, required) {
			out = append(out, candidate)
		}
	}
	return out
}

func hasAllSpecialties(have, required []string) bool {
	set := make(map[string]struct{}, len(have))
	for _, s := range have {
		set[s] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}

// Rank orders candidates by average rating descending (missing treated as 0),
// tie-broken by review count descending. Ties beyond both keys keep input order.
func Rank(candidates []Candidate) []Candidate {
	ranked := append([]Candidate(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		ri, rj := ratingOf(ranked[i]), ratingOf(ranked[j])
		if ri != rj {
			return ri > rj
		}
		return ranked[i].ReviewCount > ranked[j].ReviewCount
	})
	return ranked
}

func ratingOf(c Candidate) float64 {
	if c.AverageRating == nil {
		return 0
	}
	return *c.AverageRating
}

// SelectContractors applies the specialty filter, ranks the survivors, and
// returns at most MaxMatches contractor ids in rank order.
func SelectContractors(candidates []Candidate, required []string) []uuid.UUID {
	ranked := Rank(FilterBySpecialties(candidates, required))
	if len(ranked) > MaxMatches {
		ranked = ranked[:MaxMatches]
	}
	ids := make([]uuid.UUID, 0, len(ranked))
	for _, candidate := range ranked {
		ids = append(ids, candidate.UserID)
	}
	return ids
}
