package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/skillsync/skillsync/internal/certifications"
	"github.com/skillsync/skillsync/internal/pipeline"
)

func printMatches(w io.Writer, res *pipeline.Result) {
	if len(res.Matches) == 0 {
		fmt.Fprintln(w, "No matching listings.")
		return
	}

	fmt.Fprintf(w, "Matches (%s):\n", res.Source)
	for i, m := range res.Matches {
		l := m.Listing
		fmt.Fprintf(w, "%3d. %3.0f%%  %s @ %s", i+1, m.Score*100, l.Title, l.Company)
		if l.Location != "" {
			fmt.Fprintf(w, " (%s)", l.Location)
		}
		fmt.Fprintln(w)
		if m.Matched().Len() > 0 {
			fmt.Fprintf(w, "      have:    %s\n", strings.Join(m.Matched().Sorted(), ", "))
		}
		if m.Gap.Len() > 0 {
			fmt.Fprintf(w, "      missing: %s\n", strings.Join(m.Gap.Sorted(), ", "))
		}
		if l.URL != "" {
			fmt.Fprintf(w, "      %s\n", l.URL)
		}
	}
}

func printRecommendations(w io.Writer, res *pipeline.Result) {
	if len(res.Recommendations) == 0 {
		fmt.Fprintln(w, "No skill recommendations.")
		return
	}

	fmt.Fprintln(w, "Recommended skills:")
	for _, r := range res.Recommendations {
		fmt.Fprintf(w, "  %-20s asked by %d listing(s)\n", r.Name, r.Count)
		for _, c := range r.Certifications {
			fmt.Fprintf(w, "      certification: %s\n", c)
		}
	}

	if len(res.Certifications) > 0 {
		printCertifications(w, res.Certifications)
	}
}

func printCertifications(w io.Writer, certs []certifications.Certification) {
	if len(certs) == 0 {
		fmt.Fprintln(w, "No courses found.")
		return
	}

	fmt.Fprintln(w, "Courses:")
	for _, c := range certs {
		fmt.Fprintf(w, "  [%s] %s\n      %s\n", c.Skill, c.Name, c.URL)
	}
}
