package jobsearch

import (
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// record mirrors one entry of the provider's results array. Decoding is weakly
// typed so numeric ids and stringly booleans are accepted.
type record struct {
	ID             string   `json:"id"`
	Role           string   `json:"role"`
	CompanyName    string   `json:"company_name"`
	EmploymentType string   `json:"employment_type"`
	Location       string   `json:"location"`
	Remote         bool     `json:"remote"`
	URL            string   `json:"url"`
	Text           string   `json:"text"`
	DatePosted     string   `json:"date_posted"`
	Keywords       []string `json:"keywords"`
}

var postedLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// decodeListing turns one raw record into a Listing. Fields that do not decode
// are left empty. A record without an id or a role is rejected.
func (c *Client) decodeListing(idx int, raw any, fetchedAt time.Time) (*Listing, error) {
	if _, ok := raw.(map[string]any); !ok {
		return nil, &MalformedRecordError{Index: idx, Reason: "record is not an object"}
	}

	var rec record
	decodeErr := weakDecode(raw, &rec)

	rec.ID = strings.TrimSpace(rec.ID)
	rec.Role = strings.TrimSpace(rec.Role)
	if rec.ID == "" || rec.Role == "" {
		return nil, &MalformedRecordError{Index: idx, Reason: "missing id or role", Err: decodeErr}
	}
	if decodeErr != nil {
		c.logger.Debug("dropping undecodable fields",
			zap.String("listing_id", rec.ID),
			zap.Error(decodeErr),
		)
	}

	description := htmlToText(rec.Text)
	listing := &Listing{
		ID:             rec.ID,
		Title:          rec.Role,
		Company:        strings.TrimSpace(rec.CompanyName),
		Location:       strings.TrimSpace(rec.Location),
		Remote:         rec.Remote,
		EmploymentType: strings.TrimSpace(rec.EmploymentType),
		URL:            strings.TrimSpace(rec.URL),
		PostedAt:       parsePosted(rec.DatePosted),
		Description:    description,
		Keywords:       rec.Keywords,
		FetchedAt:      fetchedAt,
		Position:       idx,
	}

	if c.extractor != nil {
		listing.Required, listing.Preferred = c.extractor.ExtractListing(listing.Title, description, rec.Keywords)
	}

	return listing, nil
}

func parsePosted(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range postedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// weakDecode decodes input into out by json tag, converting between scalar
// types where possible. Fields that still fail are left zero and reported in
// the returned error.
func weakDecode(input, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}
