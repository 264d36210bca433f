package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"how does this work?", IntentHowItWorks},
		{"how do you detect mismatches", IntentHowItWorks},
		{"what species do you track", IntentListSpecies},
		{"which species are monitored?", IntentListSpecies},
		{"give me an overview", IntentOverview},
		{"status report please", IntentOverview},
		{"why is mango pollination failing?", IntentExplainFailure},
		{"why did pollination fail this year", IntentExplainFailure},
		{"why are butterflies declining?", IntentExplainDecline},
		{"are the bees disappearing", IntentExplainDecline},
		{"show me the mismatches", IntentShowMismatches},
		{"are bees and mangoes out of sync?", IntentShowMismatches},
		{"has mango flowering shifted?", IntentShowShifts},
		{"is the bee active earlier now", IntentShowShifts},
		{"when do giant honey bees appear?", IntentTiming},
		{"what month is mango flowering", IntentTiming},
		{"how hot was the temperature in April", IntentClimate},
		{"rainfall patterns", IntentClimate},
		{"tell me about banyan figs", IntentGeneralSearch},
		{"", IntentGeneralSearch},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassify_PrecedenceOverBroadKeywords(t *testing.T) {
	// "when" alone is timing, but the specific intents above it win.
	assert.Equal(t, IntentHowItWorks, Classify("how do you know when species overlap"))
	// "shift" would match show_shifts, but a failure question outranks it.
	assert.Equal(t, IntentExplainFailure, Classify("did the shift cause pollination failure?"))
	// "climate" is last among the keyword rules; mismatch wins.
	assert.Equal(t, IntentShowMismatches, Classify("climate driven mismatch between bees and mango"))
	// "which species" would match list_species, but decline questions
	// outrank listing.
	assert.Equal(t, IntentExplainDecline, Classify("explain which species are declining"))
	assert.Equal(t, IntentExplainFailure, Classify("which species caused the pollination failure?"))
}
