package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	iframes := []IframeRecord{
		{Index: 1, Accessible: true, MatchesFound: 2},
		{Index: 2, Accessible: false},
		{Index: 3, Accessible: true},
	}
	matches := []MatchRecord{{}, {}, {}}

	s := Summarize("needle", iframes, matches)

	assert.Equal(t, 3, s.TotalIframes)
	assert.Equal(t, 2, s.AccessibleIframes)
	assert.Equal(t, 1, s.InaccessibleIframes)
	assert.Equal(t, 3, s.TotalMatches)
	assert.Equal(t, "needle", s.SearchText)
	assert.Equal(t, s.TotalIframes, s.AccessibleIframes+s.InaccessibleIframes)
}

func TestBuildResult_EmptySequences(t *testing.T) {
	r := BuildResult(StatusCompleted, "x", nil, nil)

	require.NotNil(t, r.Iframes)
	require.NotNil(t, r.Matches)
	assert.Equal(t, OutcomeNoIframes, r.Outcome())
}

func TestResult_Outcome(t *testing.T) {
	one := []IframeRecord{{Index: 1}}

	assert.Equal(t, OutcomeCompleted, BuildResult(StatusCompleted, "x", one, nil).Outcome())
	assert.Equal(t, OutcomeStopped, BuildResult(StatusStopped, "x", one, nil).Outcome())
	assert.Equal(t, OutcomeStopped, BuildResult(StatusStopped, "x", nil, nil).Outcome())
}
