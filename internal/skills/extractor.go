package skills

import (
	"strings"
)

var (
	preferredMarkers = []string{"nice to have", "preferred", "bonus", "plus", "desirable", "good to have"}
	requiredMarkers  = []string{"requirements", "required", "must have", "qualifications", "what you need", "skills"}
)

// Extractor matches text against a Lexicon using greedy longest match.
// It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	lex *Lexicon
}

func NewExtractor(lex *Lexicon) *Extractor {
	return &Extractor{lex: lex}
}

func (e *Extractor) Lexicon() *Lexicon {
	return e.lex
}

// Extract returns the skills mentioned in text. Unknown words are ignored and
// blank input gives an empty set.
func (e *Extractor) Extract(text string) SkillSet {
	items := make(map[string]struct{})
	if strings.TrimSpace(text) == "" {
		return SkillSet{items: items}
	}
	e.scan(items, Tokenize(text))
	return SkillSet{items: items}
}

func (e *Extractor) scan(items map[string]struct{}, tokens []string) {
	for i := 0; i < len(tokens); {
		id, n := e.lex.root.longest(tokens, i)
		if n > 0 {
			items[id] = struct{}{}
			i += n
			continue
		}
		if strings.ContainsAny(tokens[i], "/.") {
			if parts := splitCompound(tokens[i]); len(parts) > 0 {
				e.scan(items, parts)
			}
		}
		i++
	}
}

type section int

const (
	sectionRequired section = iota
	sectionPreferred
)

// ExtractListing splits a posting into required and preferred skills. The
// title, keyword tags and any text outside a preferred section count as
// required. A skill found in both is reported as required only.
func (e *Extractor) ExtractListing(title, description string, keywords []string) (SkillSet, SkillSet) {
	var required, preferred strings.Builder
	required.WriteString(title)
	for _, k := range keywords {
		required.WriteString("\n")
		required.WriteString(k)
	}

	current := sectionRequired
	for _, line := range strings.Split(description, "\n") {
		if next, ok := headingSection(line); ok {
			current = next
		}
		target := &required
		if current == sectionPreferred {
			target = &preferred
		}
		target.WriteString("\n")
		target.WriteString(line)
	}

	req := e.Extract(required.String())
	pref := e.Extract(preferred.String()).Difference(req)
	return req, pref
}

// headingSection reports whether line opens a required or preferred section.
// The heading line itself belongs to the section it opens.
func headingSection(line string) (section, bool) {
	text := strings.TrimSpace(line)
	text = strings.TrimLeft(text, "#*-• ")
	text = strings.TrimSpace(strings.Trim(text, "*_"))
	if text == "" {
		return 0, false
	}
	if idx := strings.Index(text, ":"); idx > 0 {
		head := strings.TrimSpace(Fold(text[:idx]))
		if len(strings.Fields(head)) <= 6 {
			if s, ok := matchMarkers(head, strings.Contains); ok {
				return s, true
			}
		}
		return 0, false
	}

	lower := Fold(text)
	if len(strings.Fields(lower)) > 4 {
		return 0, false
	}
	return matchMarkers(lower, strings.HasPrefix)
}

func matchMarkers(text string, match func(s, marker string) bool) (section, bool) {
	for _, m := range preferredMarkers {
		if match(text, m) {
			return sectionPreferred, true
		}
	}
	for _, m := range requiredMarkers {
		if match(text, m) {
			return sectionRequired, true
		}
	}
	return 0, false
}
