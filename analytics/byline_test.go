package analytics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeDefaultProfile(t *testing.T) {
	s, err := Summarize(DefaultProfile())
	require.NoError(t, err)

	assert.Equal(t, 4.7, s.MinScore)
	assert.Equal(t, 5.0, s.MaxScore)
	assert.InDelta(t, 4.84, s.MeanScore, 1e-9)
	assert.InDelta(t, 0.1140175425, s.StdDevScore, 1e-9)
	assert.Equal(t, 34.0, s.MinAge)
	assert.Equal(t, 98.0, s.MaxAge)
	assert.InDelta(t, 58.8, s.MeanAge, 1e-9)
}

func TestBylineContent(t *testing.T) {
	out := Byline(DefaultProfile())

	for _, want := range []string{
		"Rueckert Analytics: Data Interpretations",
		"Has International Clients:",
		"Skills Offered:",
		"[GitHub, RStudio, Python]",
		"[4.7, 4.8, 4.8, 5, 4.9]",
		"Mean Client Satisfaction Score:                   4.84\n",
		"Mean Client Age:                                  58.8\n",
	} {
		assert.Contains(t, out, want)
	}
}

func TestBylineIsPure(t *testing.T) {
	p := DefaultProfile()
	first := Byline(p)
	second := Byline(p)
	assert.Equal(t, first, second)

	p.SatisfactionScores[0] = 1
	assert.Equal(t, 4.7, DefaultProfile().SatisfactionScores[0], "DefaultProfile must return a fresh copy")
}

func TestBylineEmptyProfile(t *testing.T) {
	out := Byline(Profile{Company: "Empty"})
	assert.True(t, strings.Contains(out, "n/a"))

	_, err := Summarize(Profile{})
	assert.Error(t, err)
}
