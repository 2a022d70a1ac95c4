package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/jobsearch"
)

type redFlagsFilter struct {
	toggle
	flags []string
}

// NewRedFlags creates a filter that discards listings mentioning any red flag term
// in the title, company or description.
func NewRedFlags() Filter {
	return &redFlagsFilter{}
}

func (f *redFlagsFilter) Name() string { return "red_flags" }

func (f *redFlagsFilter) Validate(cfg *Config) error {
	f.flags = nil
	if cfg == nil {
		return nil
	}
	for _, flag := range cfg.RedFlags {
		flag = strings.ToLower(strings.TrimSpace(flag))
		if flag != "" {
			f.flags = append(f.flags, flag)
		}
	}
	return nil
}

func (f *redFlagsFilter) Apply(_ context.Context, deps Deps, b *jobsearch.Batch) (*jobsearch.Batch, Step, error) {
	initial := b.Len()
	if len(f.flags) == 0 {
		return b, Step{Initial: initial, Dropped: 0, Left: b.Len()}, nil
	}

	excluded := b.Exclude(func(l *jobsearch.Listing) bool {
		return containsRedFlag(l.Title+" "+l.Company+" "+l.Description, f.flags)
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding listings with red flags",
			zap.Strings("red_flags", f.flags),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", b.Len()),
		)
	}

	return b, Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *redFlagsFilter) Status() Status {
	details := map[string]string{}
	if len(f.flags) > 0 {
		details["red_flags"] = strings.Join(f.flags, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

// containsRedFlag expects lowercased flags.
func containsRedFlag(text string, flags []string) bool {
	text = strings.ToLower(text)
	for _, flag := range flags {
		if strings.Contains(text, flag) {
			return true
		}
	}
	return false
}
