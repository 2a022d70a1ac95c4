package skills

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed lexicon.json
var defaultLexicon []byte

//go:embed lexicon.schema.json
var lexiconSchema []byte

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9+#.-]*$`)

// Term is a canonical skill with its accepted surface forms.
type Term struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Synonyms       []string `json:"synonyms,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
}

type document struct {
	Version int    `json:"version"`
	Skills  []Term `json:"skills"`
}

// Lexicon is the read-only dictionary of known skills.
type Lexicon struct {
	terms map[string]Term
	ids   []string
	root  *trieNode
}

var loadDefault = sync.OnceValues(func() (*Lexicon, error) {
	return Parse(defaultLexicon)
})

// Default returns the embedded lexicon. It is parsed once per process.
func Default() (*Lexicon, error) {
	return loadDefault()
}

// Load reads the lexicon from path, or returns the embedded one when path is empty.
func Load(path string) (*Lexicon, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %q: %w", path, err)
	}

	lex, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lexicon %q: %w", path, err)
	}

	return lex, nil
}

// Parse validates data against the lexicon schema and builds a Lexicon.
func Parse(data []byte) (*Lexicon, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(lexiconSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating lexicon: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("invalid lexicon: %s", strings.Join(msgs, "; "))
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding lexicon: %w", err)
	}

	return New(doc.Skills)
}

// New builds a Lexicon from terms. Two terms claiming the same surface form is
// an error.
func New(terms []Term) (*Lexicon, error) {
	if len(terms) == 0 {
		return nil, errors.New("lexicon has no terms")
	}

	lex := &Lexicon{
		terms: make(map[string]Term, len(terms)),
		ids:   make([]string, 0, len(terms)),
		root:  newTrieNode(),
	}

	for _, term := range terms {
		term.ID = strings.TrimSpace(term.ID)
		if !idPattern.MatchString(term.ID) {
			return nil, fmt.Errorf("invalid skill id %q", term.ID)
		}
		if _, ok := lex.terms[term.ID]; ok {
			return nil, fmt.Errorf("duplicate skill id %q", term.ID)
		}
		if strings.TrimSpace(term.Name) == "" {
			term.Name = term.ID
		}

		for _, surface := range surfaces(term) {
			phrase := Tokenize(surface)
			if len(phrase) == 0 {
				continue
			}
			if other := lex.root.insert(phrase, term.ID); other != "" {
				return nil, fmt.Errorf("surface form %q maps to both %q and %q", surface, other, term.ID)
			}
		}

		lex.terms[term.ID] = term
		lex.ids = append(lex.ids, term.ID)
	}

	sort.Strings(lex.ids)

	return lex, nil
}

func surfaces(term Term) []string {
	out := make([]string, 0, len(term.Synonyms)+2)
	out = append(out, strings.ReplaceAll(term.ID, "-", " "), term.Name)
	out = append(out, term.Synonyms...)
	return out
}

// Lookup resolves a whole surface form, such as "ML" or "Golang", to a skill id.
func (l *Lexicon) Lookup(surface string) (string, bool) {
	if id := strings.TrimSpace(surface); id != "" {
		if _, ok := l.terms[strings.ToLower(id)]; ok {
			return strings.ToLower(id), true
		}
	}

	tokens := Tokenize(surface)
	if len(tokens) == 0 {
		return "", false
	}

	id, n := l.root.longest(tokens, 0)
	if n != len(tokens) {
		return "", false
	}
	return id, true
}

// Term returns the term registered under id.
func (l *Lexicon) Term(id string) (Term, bool) {
	t, ok := l.terms[id]
	return t, ok
}

// Certifications returns the static certification names for id, or nil.
func (l *Lexicon) Certifications(id string) []string {
	t, ok := l.terms[id]
	if !ok || len(t.Certifications) == 0 {
		return nil
	}
	return append([]string(nil), t.Certifications...)
}

// Name returns the display name for id, falling back to the id itself.
func (l *Lexicon) Name(id string) string {
	if t, ok := l.terms[id]; ok {
		return t.Name
	}
	return id
}

func (l *Lexicon) Len() int {
	return len(l.terms)
}

// IDs returns all skill ids in sorted order.
func (l *Lexicon) IDs() []string {
	return append([]string(nil), l.ids...)
}
