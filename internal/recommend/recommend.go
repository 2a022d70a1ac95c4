// Package recommend turns the skill gaps of the best matches into learning
// suggestions.
package recommend

import (
	"sort"

	"github.com/skillsync/skillsync/internal/matching"
	"github.com/skillsync/skillsync/internal/skills"
)

const (
	DefaultTopN      = 20
	DefaultMaxSkills = 10
)

// Recommendation is a missing skill and how many top listings asked for it.
type Recommendation struct {
	Skill          string   `json:"skill"`
	Name           string   `json:"name"`
	Count          int      `json:"count"`
	Certifications []string `json:"certifications"`
}

// Certifier maps a skill id to known certification names.
type Certifier interface {
	Certifications(id string) []string
	Name(id string) string
}

type Aggregator struct {
	certs     Certifier
	topN      int
	maxSkills int
}

// New builds an Aggregator. Non-positive limits take defaults.
func New(certs Certifier, topN, maxSkills int) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if maxSkills <= 0 {
		maxSkills = DefaultMaxSkills
	}
	return &Aggregator{certs: certs, topN: topN, maxSkills: maxSkills}
}

// Recommend tallies gap skills over the first topN matches, leaving out skills
// the candidate has. The most requested skills come first, ties by id.
// topN <= 0 uses the aggregator default.
func (a *Aggregator) Recommend(matches []matching.Result, have skills.SkillSet, topN int) []Recommendation {
	if topN <= 0 {
		topN = a.topN
	}
	if len(matches) > topN {
		matches = matches[:topN]
	}

	counts := make(map[string]int)
	for _, m := range matches {
		for _, id := range m.Gap.Sorted() {
			if have.Has(id) {
				continue
			}
			counts[id]++
		}
	}

	recs := make([]Recommendation, 0, len(counts))
	for id, n := range counts {
		recs = append(recs, Recommendation{Skill: id, Name: id, Count: n})
	}

	sort.Slice(recs, func(i, j int) bool {
		if recs[i].Count != recs[j].Count {
			return recs[i].Count > recs[j].Count
		}
		return recs[i].Skill < recs[j].Skill
	})

	if len(recs) > a.maxSkills {
		recs = recs[:a.maxSkills]
	}

	for i := range recs {
		recs[i].Certifications = []string{}
		if a.certs == nil {
			continue
		}
		recs[i].Name = a.certs.Name(recs[i].Skill)
		if certs := a.certs.Certifications(recs[i].Skill); len(certs) > 0 {
			recs[i].Certifications = certs
		}
	}

	return recs
}

// Skills returns the recommended skill ids in order.
func Skills(recs []Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Skill)
	}
	return out
}

// Names returns the display names of the recommended skills in order.
func Names(recs []Recommendation) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}
