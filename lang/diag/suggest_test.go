package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggestRanksByDistance(t *testing.T) {
	cands := []string{"printLn", "print", "debug", "ceil"}
	got := Suggest("pritnLn", cands)
	assert.NotEmpty(t, got)
	assert.Equal(t, "printLn", got[0].Name)
}

func TestSuggestCaseOnlyMatch(t *testing.T) {
	got := Suggest("Print", []string{"print"})
	assert.Len(t, got, 1)
	assert.True(t, got[0].CaseOnly)
}

func TestSuggestExcludesFarMatches(t *testing.T) {
	got := Suggest("x", []string{"completelyDifferentName"})
	assert.Empty(t, got)
}
