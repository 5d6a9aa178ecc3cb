package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

func TestClassify_BroadCreatorQueryIsGeneral(t *testing.T) {
	c := NewIntentClassifier()

	analysis := c.Classify("videos by Alice")
	assert.Equal(t, domain.IntentGeneral, analysis.Intent)
	assert.GreaterOrEqual(t, analysis.Confidence, 0.3)
}

func TestClassify_EventQueryIsSpecific(t *testing.T) {
	c := NewIntentClassifier()

	analysis := c.Classify("the video where Alice raided Bob's base")
	assert.Equal(t, domain.IntentSpecific, analysis.Intent)
	assert.Greater(t, analysis.Confidence, 0.6)

	found := false
	for _, ind := range analysis.Indicators {
		if ind == "specific:event_specific" || ind == "specific:keyword:raid" {
			found = true
		}
	}
	assert.True(t, found, "indicators: %v", analysis.Indicators)
}

func TestClassify_TemporalQueryIsSpecific(t *testing.T) {
	c := NewIntentClassifier()

	analysis := c.Classify("shroud's first tournament final")
	assert.Equal(t, domain.IntentSpecific, analysis.Intent)
}

func TestClassify_Deterministic(t *testing.T) {
	c := NewIntentClassifier()

	first := c.Classify("the one where Ludwig destroyed the leaderboard")
	second := c.Classify("the one where Ludwig destroyed the leaderboard")
	assert.Equal(t, first, second)
}

func TestClassify_ConfidenceWithinBounds(t *testing.T) {
	c := NewIntentClassifier()
	queries := []string{
		"",
		"minecraft videos",
		"videos by Alice",
		"the video where Alice raided Bob's base in the tournament final",
		"xyzzy",
	}
	for _, q := range queries {
		analysis := c.Classify(q)
		assert.GreaterOrEqual(t, analysis.Confidence, 0.0, "query %q", q)
		assert.LessOrEqual(t, analysis.Confidence, 1.0, "query %q", q)
	}
}

func TestClassify_AmbiguousDefaultsToGeneral(t *testing.T) {
	c := NewIntentClassifier()

	analysis := c.Classify("xyzzy")
	assert.Equal(t, domain.IntentGeneral, analysis.Intent)
}
