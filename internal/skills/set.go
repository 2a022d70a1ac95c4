package skills

import (
	"encoding/json"
	"sort"
)

// SkillSet is an immutable set of skill ids.
type SkillSet struct {
	items map[string]struct{}
}

// NewSkillSet builds a set from ids. Empty ids are ignored.
func NewSkillSet(ids ...string) SkillSet {
	items := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		items[id] = struct{}{}
	}
	return SkillSet{items: items}
}

func (s SkillSet) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

func (s SkillSet) Len() int {
	return len(s.items)
}

// Sorted returns the ids in ascending order.
func (s SkillSet) Sorted() []string {
	out := make([]string, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Intersect returns ids present in both sets.
func (s SkillSet) Intersect(other SkillSet) SkillSet {
	small, large := s, other
	if small.Len() > large.Len() {
		small, large = large, small
	}
	items := make(map[string]struct{})
	for id := range small.items {
		if large.Has(id) {
			items[id] = struct{}{}
		}
	}
	return SkillSet{items: items}
}

// Difference returns ids of s that are not in other.
func (s SkillSet) Difference(other SkillSet) SkillSet {
	items := make(map[string]struct{})
	for id := range s.items {
		if !other.Has(id) {
			items[id] = struct{}{}
		}
	}
	return SkillSet{items: items}
}

// Union returns ids present in either set.
func (s SkillSet) Union(other SkillSet) SkillSet {
	items := make(map[string]struct{}, s.Len()+other.Len())
	for id := range s.items {
		items[id] = struct{}{}
	}
	for id := range other.items {
		items[id] = struct{}{}
	}
	return SkillSet{items: items}
}

// Equal reports whether both sets hold the same ids.
func (s SkillSet) Equal(other SkillSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.items {
		if !other.Has(id) {
			return false
		}
	}
	return true
}

func (s SkillSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *SkillSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewSkillSet(ids...)
	return nil
}
