package jobsearch

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/skillsync/skillsync/internal/skills"
)

// Tier marks where a batch was served from.
type Tier string

const (
	TierLive     Tier = "live"
	TierFallback Tier = "fallback"
)

// Listing is one job posting with the skills extracted from it.
type Listing struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Company        string          `json:"company"`
	Location       string          `json:"location,omitempty"`
	Remote         bool            `json:"remote"`
	EmploymentType string          `json:"employment_type,omitempty"`
	URL            string          `json:"url,omitempty"`
	PostedAt       *time.Time      `json:"posted_at,omitempty"`
	Description    string          `json:"description,omitempty"`
	Keywords       []string        `json:"keywords,omitempty"`
	Required       skills.SkillSet `json:"required"`
	Preferred      skills.SkillSet `json:"preferred"`
	FetchedAt      time.Time       `json:"fetched_at"`
	Position       int             `json:"position"`
}

// Batch is the ordered result of one provider query.
type Batch struct {
	Key       string       `json:"key"`
	Params    SearchParams `json:"params"`
	Items     []*Listing   `json:"items"`
	FetchedAt time.Time    `json:"fetched_at"`
	Tier      Tier         `json:"tier"`
	Skipped   int          `json:"skipped"`
	// FromCache is set on batches served without a provider call.
	FromCache bool `json:"-"`
}

func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Clone copies the batch and its item slice. Listings are shared and must be
// treated as read-only.
func (b *Batch) Clone() *Batch {
	if b == nil {
		return nil
	}
	c := *b
	c.Items = append([]*Listing(nil), b.Items...)
	c.Params.Keywords = append([]string(nil), b.Params.Keywords...)
	return &c
}

func (b *Batch) FindByID(id string) *Listing {
	for _, l := range b.Items {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (b *Batch) IDs() []string {
	ids := make([]string, 0, len(b.Items))
	for _, l := range b.Items {
		ids = append(ids, l.ID)
	}
	return ids
}

// Exclude drops listings for which drop returns true, preserving order, and
// returns the ids removed.
func (b *Batch) Exclude(drop func(*Listing) bool) []string {
	var excluded []string
	kept := make([]*Listing, 0, len(b.Items))
	for _, l := range b.Items {
		if drop(l) {
			excluded = append(excluded, l.ID)
			continue
		}
		kept = append(kept, l)
	}
	b.Items = kept
	return excluded
}

// ExcludeIDs drops listings with the given ids.
func (b *Batch) ExcludeIDs(ids []string) []string {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return b.Exclude(func(l *Listing) bool {
		_, ok := set[l.ID]
		return ok
	})
}

// ReportByCompany groups listings by company for display.
func (b *Batch) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, l := range b.Items {
		key := l.Company
		if key == "" {
			key = "unknown company"
		}
		entry := map[string]string{
			"title":     l.Title,
			"url":       l.URL,
			"location":  l.Location,
			"remote":    fmt.Sprintf("%t", l.Remote),
			"required":  strings.Join(l.Required.Sorted(), ", "),
			"preferred": strings.Join(l.Preferred.Sorted(), ", "),
		}
		if l.EmploymentType != "" {
			entry["employment_type"] = l.EmploymentType
		}
		report[key] = append(report[key], entry)
	}
	return report
}

// DumpToTmpFile writes the batch as indented JSON to a temp file and returns its name.
func (b *Batch) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "listings_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return "", err
	}
	return file.Name(), nil
}

// ToExcluded converts every listing in the batch to an exclude file record.
func (b *Batch) ToExcluded(now time.Time) *ExcludedListings {
	excluded := &ExcludedListings{}
	for _, l := range b.Items {
		excluded.Items = append(excluded.Items, &ExcludedListing{
			ID:         l.ID,
			URL:        l.URL,
			Company:    l.Company,
			ExcludedAt: now.UTC(),
		})
	}
	return excluded
}

// ExcludedListings is the content of an exclude file.
type ExcludedListings struct {
	Items []*ExcludedListing `json:"items"`
}

type ExcludedListing struct {
	ID         string    `json:"id"`
	URL        string    `json:"url,omitempty"`
	Company    string    `json:"company,omitempty"`
	ExcludedAt time.Time `json:"excluded_at"`
}

// ReadExcludedFile loads an exclude file. A missing or empty file yields an empty list.
func ReadExcludedFile(path string) (*ExcludedListings, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &ExcludedListings{}, nil
		}
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &ExcludedListings{}, nil
	}

	var excluded ExcludedListings
	if err := json.NewDecoder(file).Decode(&excluded); err != nil {
		return nil, fmt.Errorf("decoding exclude file %q: %w", path, err)
	}
	return &excluded, nil
}

// Append adds records whose ids are not already present.
func (e *ExcludedListings) Append(other *ExcludedListings) {
	known := make(map[string]struct{}, len(e.Items))
	for _, item := range e.Items {
		known[item.ID] = struct{}{}
	}
	for _, item := range other.Items {
		if _, ok := known[item.ID]; ok {
			continue
		}
		known[item.ID] = struct{}{}
		e.Items = append(e.Items, item)
	}
}

func (e *ExcludedListings) IDs() []string {
	ids := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// WriteFile replaces path with the indented JSON list.
func (e *ExcludedListings) WriteFile(path string) error {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	return enc.Encode(e)
}
