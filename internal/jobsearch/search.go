package jobsearch

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/skillsync/skillsync/internal/utils"
)

const (
	// DefaultLocation is used when a search has no location.
	DefaultLocation = "Worldwide"

	cacheKeyVersion = "v1"
)

// SearchParams identifies one provider query.
type SearchParams struct {
	Keywords []string `json:"keywords" mapstructure:"keywords"`
	Location string   `json:"location" mapstructure:"location"`
	Page     int      `json:"page" mapstructure:"page"`
}

// Normalize returns params with lowercased, deduplicated and sorted keyword
// words, collapsed location whitespace and a page of at least one.
// An empty location becomes defaultLocation.
func (p SearchParams) Normalize(defaultLocation string) SearchParams {
	seen := make(map[string]struct{})
	words := make([]string, 0, len(p.Keywords))
	for _, kw := range p.Keywords {
		for _, w := range strings.Fields(strings.ToLower(kw)) {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			words = append(words, w)
		}
	}
	sort.Strings(words)

	location := strings.Join(strings.Fields(p.Location), " ")
	if location == "" {
		location = strings.Join(strings.Fields(defaultLocation), " ")
	}
	if location == "" {
		location = DefaultLocation
	}

	page := p.Page
	if page < 1 {
		page = 1
	}

	return SearchParams{Keywords: words, Location: location, Page: page}
}

// Clean returns params in the form sent to the provider. Keyword phrases keep
// the caller's order and wording with whitespace collapsed; empty and repeated
// phrases are dropped. Location and page are defaulted as in Normalize.
func (p SearchParams) Clean(defaultLocation string) SearchParams {
	phrases := make([]string, 0, len(p.Keywords))
	for _, kw := range p.Keywords {
		phrases = append(phrases, strings.Join(strings.Fields(kw), " "))
	}
	n := p.Normalize(defaultLocation)
	return SearchParams{
		Keywords: utils.CleanStrings(phrases, 0),
		Location: n.Location,
		Page:     n.Page,
	}
}

// CacheKey is a stable fingerprint of the query. Keyword order, case and
// whitespace do not change it.
func (p SearchParams) CacheKey() string {
	n := p.Normalize("")
	raw := fmt.Sprintf("%s|k=%s|l=%s|p=%d",
		cacheKeyVersion,
		strings.Join(n.Keywords, ","),
		strings.ToLower(n.Location),
		n.Page,
	)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// Query returns the search text sent to the provider.
func (p SearchParams) Query() string {
	return strings.Join(p.Keywords, " ")
}

func buildParams(p SearchParams) url.Values {
	q := url.Values{}
	if s := p.Query(); s != "" {
		q.Set("search", s)
	}
	if p.Location != "" {
		q.Set("location", p.Location)
	}
	q.Set("page", strconv.Itoa(p.Page))
	return q
}
