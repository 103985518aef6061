// Package analytics renders the fixed analytics profile shown at the start of a run.
package analytics

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-fetch-datasets/stats"
)

// Profile is the immutable input of Byline.
type Profile struct {
	Company                 string
	HasInternationalClients bool
	YearsInOperation        int
	SkillsOffered           []string
	SatisfactionScores      []float64
	ClientAges              []float64
}

// DefaultProfile returns a fresh copy of the sample profile.
func DefaultProfile() Profile {
	return Profile{
		Company:                 "Rueckert Analytics: Data Interpretations",
		HasInternationalClients: true,
		YearsInOperation:        6,
		SkillsOffered:           []string{"GitHub", "RStudio", "Python"},
		SatisfactionScores:      []float64{4.7, 4.8, 4.8, 5.0, 4.9},
		ClientAges:              []float64{34, 42, 53, 67, 98},
	}
}

// Summary holds the statistics derived from a Profile.
type Summary struct {
	MinScore, MaxScore, MeanScore, StdDevScore float64
	MinAge, MaxAge, MeanAge, StdDevAge         float64
}

// Summarize computes score and age statistics.
func Summarize(p Profile) (Summary, error) {
	var s Summary
	var err error
	if s.MinScore, s.MaxScore, s.MeanScore, s.StdDevScore, err = describe(p.SatisfactionScores); err != nil {
		return Summary{}, fmt.Errorf("satisfaction scores: %w", err)
	}
	if s.MinAge, s.MaxAge, s.MeanAge, s.StdDevAge, err = describe(p.ClientAges); err != nil {
		return Summary{}, fmt.Errorf("client ages: %w", err)
	}
	return s, nil
}

func describe(values []float64) (minV, maxV, mean, std float64, err error) {
	d, err := stats.Describe(values)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return d.Min, d.Max, d.Mean, d.Std, nil
}

const separator = "----------------------------------------------------------"

// Byline renders the banner for p. Statistics that cannot be computed are shown as "n/a".
func Byline(p Profile) string {
	s, err := Summarize(p)

	var b strings.Builder
	b.WriteString("\n" + separator + "\n")
	b.WriteString(p.Company + "\n")
	b.WriteString(separator + "\n")

	line := func(label, value string) {
		fmt.Fprintf(&b, "%-50s%s\n", label+":", value)
	}
	stat := func(v float64) string {
		if err != nil {
			return "n/a"
		}
		return formatFloat(v)
	}

	line("Has International Clients", strconv.FormatBool(p.HasInternationalClients))
	line("Years in Operation", strconv.Itoa(p.YearsInOperation))
	line("Skills Offered", formatList(p.SkillsOffered))
	line("Client Satisfaction Scores", formatFloats(p.SatisfactionScores))
	line("Minimum Client Satisfaction Score", stat(s.MinScore))
	line("Maximum Client Satisfaction Score", stat(s.MaxScore))
	line("Mean Client Satisfaction Score", stat(s.MeanScore))
	line("Standard Deviation of Client Satisfaction Scores", stat(s.StdDevScore))
	line("Minimum Client Age", stat(s.MinAge))
	line("Maximum Client Age", stat(s.MaxAge))
	line("Mean Client Age", stat(s.MeanAge))
	line("Standard Deviation of Client Ages", stat(s.StdDevAge))
	return b.String()
}

// formatFloat trims binary noise (4.840000000000001 -> 4.84).
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func formatFloats(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatList(values []string) string {
	return "[" + strings.Join(values, ", ") + "]"
}
