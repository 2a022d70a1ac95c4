// Package matching scores listings against a candidate's skills.
package matching

import (
	"fmt"
	"sort"

	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/skills"
)

// Weights sets how much a matched required or preferred skill counts.
type Weights struct {
	Required  float64 `mapstructure:"required"`
	Preferred float64 `mapstructure:"preferred"`
}

// DefaultWeights count a preferred skill as half a required one.
var DefaultWeights = Weights{Required: 1.0, Preferred: 0.5}

func (w Weights) Validate() error {
	if w.Required <= 0 || w.Preferred <= 0 {
		return fmt.Errorf("scoring weights must be positive, got required=%v preferred=%v", w.Required, w.Preferred)
	}
	return nil
}

// Result is the score of one listing.
type Result struct {
	Listing          *jobsearch.Listing `json:"listing"`
	Score            float64            `json:"score"`
	MatchedRequired  skills.SkillSet    `json:"matched_required"`
	MatchedPreferred skills.SkillSet    `json:"matched_preferred"`
	Gap              skills.SkillSet    `json:"gap"`
}

// Matched returns every matched skill.
func (r Result) Matched() skills.SkillSet {
	return r.MatchedRequired.Union(r.MatchedPreferred)
}

type Scorer struct {
	weights  Weights
	minScore float64
}

// NewScorer builds a Scorer. Results below minScore are dropped by Rank.
func NewScorer(weights Weights, minScore float64) (*Scorer, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	if minScore < 0 || minScore > 1 {
		return nil, fmt.Errorf("minimum score must be within [0,1], got %v", minScore)
	}
	return &Scorer{weights: weights, minScore: minScore}, nil
}

// Score compares have with the listing's skills. Preferred skills that are
// also required only count as required. An empty required set is fully
// covered and counts as one matched required skill, so a listing never ties
// with an otherwise identical one that asks for a skill the candidate lacks.
func (s *Scorer) Score(have skills.SkillSet, listing *jobsearch.Listing) Result {
	required := listing.Required
	preferred := listing.Preferred.Difference(required)

	res := Result{
		Listing:          listing,
		MatchedRequired:  have.Intersect(required),
		MatchedPreferred: have.Intersect(preferred),
		Gap:              required.Difference(have),
	}

	requiredTotal := float64(required.Len())
	requiredGot := float64(res.MatchedRequired.Len())
	if required.Len() == 0 {
		requiredTotal, requiredGot = 1, 1
	}

	total := s.weights.Required*requiredTotal + s.weights.Preferred*float64(preferred.Len())
	got := s.weights.Required*requiredGot + s.weights.Preferred*float64(res.MatchedPreferred.Len())
	res.Score = clamp(got / total)
	return res
}

// Rank scores all listings and orders them by score, then newest fetch, then
// provider position.
func (s *Scorer) Rank(have skills.SkillSet, listings []*jobsearch.Listing) []Result {
	results := make([]Result, 0, len(listings))
	for _, l := range listings {
		if l == nil {
			continue
		}
		r := s.Score(have, l)
		if r.Score < s.minScore {
			continue
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Listing.FetchedAt.Equal(b.Listing.FetchedAt) {
			return a.Listing.FetchedAt.After(b.Listing.FetchedAt)
		}
		return a.Listing.Position < b.Listing.Position
	})

	return results
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
