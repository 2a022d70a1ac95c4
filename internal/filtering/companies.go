package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/skillsync/skillsync/internal/jobsearch"
	"github.com/skillsync/skillsync/internal/utils"
)

type companiesFilter struct {
	toggle
	companies map[string]struct{}
	names     []string
}

// NewExcludedCompanies creates a filter that removes listings by companies configured in the config.
// Company names are compared case-insensitively.
func NewExcludedCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "excluded_companies" }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = map[string]struct{}{}
	f.names = nil
	if cfg == nil {
		return nil
	}
	f.names = utils.CleanStrings(cfg.ExcludedCompanies, 0)
	for _, c := range f.names {
		f.companies[strings.ToLower(c)] = struct{}{}
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, deps Deps, b *jobsearch.Batch) (*jobsearch.Batch, Step, error) {
	initial := b.Len()
	if len(f.companies) == 0 {
		return b, Step{Initial: initial, Dropped: 0, Left: b.Len()}, nil
	}

	excluded := b.Exclude(func(l *jobsearch.Listing) bool {
		_, ok := f.companies[strings.ToLower(strings.TrimSpace(l.Company))]
		return ok
	})
	if len(excluded) > 0 {
		deps.Logger.Info("excluding listings by companies",
			zap.Strings("excluded_companies", f.names),
			zap.Strings("excluded_listings", excluded),
			zap.Int("listings_left", b.Len()),
		)
	}

	return b, Step{Initial: initial, Dropped: len(excluded), Left: b.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.names) > 0 {
		details["companies"] = strings.Join(f.names, ",")
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
