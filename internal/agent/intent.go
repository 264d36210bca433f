package agent

import "strings"

// Intent is the recognized purpose of a user query.
type Intent string

const (
	IntentHowItWorks     Intent = "how_it_works"
	IntentListSpecies    Intent = "list_species"
	IntentOverview       Intent = "overview"
	IntentExplainFailure Intent = "explain_failure"
	IntentExplainDecline Intent = "explain_decline"
	IntentShowMismatches Intent = "show_mismatches"
	IntentShowShifts     Intent = "show_shifts"
	IntentTiming         Intent = "timing"
	IntentClimate        Intent = "climate"
	IntentGeneralSearch  Intent = "general_search"
)

// intentRules is the ordered keyword table. The FIRST rule with a matching
// keyword wins, so explanation intents sit above everything else: "explain
// which species are declining" must hit explain_decline before "which
// species" routes to list_species, and "how does this work" must not fall
// through to timing on "when".
var intentRules = []struct {
	intent   Intent
	keywords []string
}{
	{IntentExplainFailure, []string{"fail", "failure", "not working", "why is pollination"}},
	{IntentExplainDecline, []string{"decline", "declining", "dying", "disappear", "fewer"}},
	{IntentHowItWorks, []string{"how does this work", "how do you", "how it works", "methodology"}},
	{IntentListSpecies, []string{"what species", "which species", "list species", "species do you"}},
	{IntentOverview, []string{"overview", "summary", "status report", "big picture"}},
	{IntentShowMismatches, []string{"mismatch", "out of sync", "gap between"}},
	{IntentShowShifts, []string{"shift", "earlier", "later", "trend", "changed", "changing"}},
	{IntentTiming, []string{"when", "timing", "what time", "which season", "what month"}},
	{IntentClimate, []string{"climate", "temperature", "weather", "rain", "anomal", "warming"}},
}

// Classify maps a free-text query to an intent. Queries matching no rule
// fall through to general semantic search.
func Classify(query string) Intent {
	q := strings.ToLower(query)
	for _, rule := range intentRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(q, keyword) {
				return rule.intent
			}
		}
	}
	return IntentGeneralSearch
}
