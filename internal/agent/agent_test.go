package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
)

// --- fake searcher ---

type fakeSearcher struct {
	observations map[string][]domain.Observation // keyed by species_key
	shifts       map[string]domain.PhenologyShift
	climate      []domain.ClimateSignal
	facts        []string
	err          error
}

func (f *fakeSearcher) Observations(_ context.Context, _ string, _ int, filter domain.Filter) ([]domain.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	if key, ok := filterValue(filter, "species_key"); ok {
		return f.observations[key], nil
	}
	var all []domain.Observation
	for _, observations := range f.observations {
		all = append(all, observations...)
	}
	return all, nil
}

func (f *fakeSearcher) Shifts(_ context.Context, _ string, _ int, filter domain.Filter) ([]domain.PhenologyShift, error) {
	if f.err != nil {
		return nil, f.err
	}
	if key, ok := filterValue(filter, "species_key"); ok {
		if shift, found := f.shifts[key]; found {
			return []domain.PhenologyShift{shift}, nil
		}
		return nil, nil
	}
	var all []domain.PhenologyShift
	for _, shift := range f.shifts {
		all = append(all, shift)
	}
	return all, nil
}

func (f *fakeSearcher) Climate(_ context.Context, _ string, _ int, _ domain.Filter) ([]domain.ClimateSignal, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.climate, nil
}

func (f *fakeSearcher) Facts(_ context.Context, _ string, _ int) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.facts, nil
}

func filterValue(filter domain.Filter, key string) (string, bool) {
	for _, m := range filter {
		if m.Key == key {
			if s, ok := m.Value.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// --- fixtures ---

func testFacts() *ecology.Facts {
	return &ecology.Facts{
		Species: []domain.Species{
			{Key: "apis_dorsata", Name: "Giant Honey Bee", Category: domain.CategoryBee, Role: domain.RolePollinator},
			{Key: "mangifera_indica", Name: "Mango", Category: domain.CategoryPlant, Role: domain.RoleResource},
			{Key: "papilio_polytes", Name: "Common Mormon", Category: domain.CategoryButterfly, Role: domain.RoleConsumer},
			{Key: "murraya_koenigii", Name: "Curry Leaf", Category: domain.CategoryPlant, Role: domain.RoleResource},
		},
		Relationships: []ecology.Relationship{
			{Consumer: "Giant Honey Bee", ConsumerType: "pollinator", Resource: "Mango",
				ResourceType: "flower", Kind: "pollination", Description: "pollinates mango flowers"},
			{Consumer: "Common Mormon", ConsumerType: "butterfly_larvae", Resource: "Curry Leaf",
				ResourceType: "host_plant", Kind: "obligate_herbivory", Description: "larvae feed on curry leaf"},
		},
		ImpactNotes: []ecology.ImpactNote{
			{Consumer: "Bee", Resource: "Mango", Label: "Agricultural Impact",
				Text: "Reduced mango pollination success."},
		},
	}
}

func obs(id, key, name string, category domain.Category, role domain.Role, doy int) domain.Observation {
	return domain.Observation{
		ID: id, SpeciesKey: key, SpeciesName: name, Category: category, Role: role,
		Year: 2024, DayOfYear: doy, Season: domain.SeasonPreMonsoon,
	}
}

func testSearcher() *fakeSearcher {
	return &fakeSearcher{
		observations: map[string][]domain.Observation{
			"apis_dorsata": {
				obs("b1", "apis_dorsata", "Giant Honey Bee", domain.CategoryBee, domain.RolePollinator, 127),
				obs("b2", "apis_dorsata", "Giant Honey Bee", domain.CategoryBee, domain.RolePollinator, 128),
				obs("b3", "apis_dorsata", "Giant Honey Bee", domain.CategoryBee, domain.RolePollinator, 129),
			},
			"mangifera_indica": {
				obs("m1", "mangifera_indica", "Mango", domain.CategoryPlant, domain.RoleResource, 97),
				obs("m2", "mangifera_indica", "Mango", domain.CategoryPlant, domain.RoleResource, 98),
				obs("m3", "mangifera_indica", "Mango", domain.CategoryPlant, domain.RoleResource, 99),
			},
		},
		shifts: map[string]domain.PhenologyShift{
			"apis_dorsata": {
				SpeciesKey: "apis_dorsata", SpeciesName: "Giant Honey Bee", Category: domain.CategoryBee,
				BaselineMedianDOY: 101, CurrentMedianDOY: 128, ShiftDays: 27, Direction: domain.ShiftLater,
			},
			"mangifera_indica": {
				SpeciesKey: "mangifera_indica", SpeciesName: "Mango", Category: domain.CategoryPlant,
				BaselineMedianDOY: 112, CurrentMedianDOY: 98, ShiftDays: -14, Direction: domain.ShiftEarlier,
			},
		},
		climate: []domain.ClimateSignal{
			{Year: 2024, Month: 4, Season: domain.SeasonPreMonsoon, TempMean: 31.2, TempAnomaly: 2.1, PrecipitationMM: 12.5},
			{Year: 2024, Month: 3, Season: domain.SeasonPreMonsoon, TempMean: 29.0, TempAnomaly: 0.8, PrecipitationMM: 4.0},
		},
		facts: []string{"Giant Honey Bee (pollinator) depends on Mango (flower) for pollination"},
	}
}

func newTestAgent(searcher Searcher) *Agent {
	return New(searcher, testFacts(), 2024, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func answer(t *testing.T, a *Agent, query string) string {
	t.Helper()
	var out bytes.Buffer
	require.NoError(t, a.Answer(context.Background(), query, &out))
	return out.String()
}

// --- tests ---

func TestAgent_HowItWorks(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "how does this work?")
	assert.Contains(t, out, "phenological mismatches")
	assert.Contains(t, out, "SEVERE")
}

func TestAgent_ListSpecies(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "what species do you track?")
	assert.Contains(t, out, "Tracking 4 species")
	assert.Contains(t, out, "Giant Honey Bee (apis_dorsata, bee, pollinator)")
	assert.Contains(t, out, "Common Mormon -> Curry Leaf (obligate_herbivory)")
}

func TestAgent_ExplainFailure_RendersFullReport(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "why is mango pollination failing?")

	assert.Contains(t, out, "SEVERE MISMATCH: Giant Honey Bee activity peaks 30 days after Mango flowering in 2024.")
	assert.Contains(t, out, "Historical shift:")
	assert.Contains(t, out, "Giant Honey Bee: 27.0 days later")
	assert.Contains(t, out, "Climate context:")
	assert.Contains(t, out, "anomaly +2.10°C", "strongest anomaly month is selected")
	assert.Contains(t, out, "Agricultural Impact:")
	// Only the mango pair is mentioned, so the butterfly pair stays out.
	assert.NotContains(t, out, "Common Mormon")
}

func TestAgent_Mismatches_InsufficientPairReportsGracefully(t *testing.T) {
	// No butterfly or curry leaf observations exist.
	out := answer(t, newTestAgent(testSearcher()), "show me the mismatch for common mormon")
	assert.Contains(t, out, "Not enough 2024 observations to analyze Common Mormon and Curry Leaf.")
}

func TestAgent_Overview(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "give me an overview")

	assert.Contains(t, out, "Mismatch overview for 2024:")
	assert.Contains(t, out, "Giant Honey Bee -> Mango: gap 30 days (SEVERE)")
	assert.Contains(t, out, "Common Mormon -> Curry Leaf: insufficient data")
}

func TestAgent_ShowShifts_AllSpecies(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "how much has everything shifted?")

	assert.Contains(t, out, "Phenology shifts")
	assert.Contains(t, out, "Giant Honey Bee (bee) phenology:")
	assert.Contains(t, out, "Mango (plant) phenology:")
	// Sorted by magnitude: the bee's 27-day shift prints first.
	beeIdx := strings.Index(out, "Giant Honey Bee (bee)")
	mangoIdx := strings.Index(out, "Mango (plant)")
	assert.Less(t, beeIdx, mangoIdx)
}

func TestAgent_ShowShifts_MentionedSpeciesOnly(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "has mango flowering shifted?")
	assert.Contains(t, out, "Mango (plant) phenology:")
	assert.NotContains(t, out, "Giant Honey Bee")
}

func TestAgent_Timing(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "when is the giant honey bee active?")
	assert.Contains(t, out, "Giant Honey Bee in 2024: 3 observations, median day 128, mostly pre_monsoon season.")
}

func TestAgent_Timing_NoObservations(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "when does curry leaf flush?")
	assert.Contains(t, out, "Curry Leaf: no 2024 observations on record.")
}

func TestAgent_Climate(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "how was the temperature?")

	assert.Contains(t, out, "Climate signals for 2024:")
	marchIdx := strings.Index(out, "climate in 2024-03")
	aprilIdx := strings.Index(out, "climate in 2024-04")
	require.GreaterOrEqual(t, marchIdx, 0)
	require.GreaterOrEqual(t, aprilIdx, 0)
	assert.Less(t, marchIdx, aprilIdx, "months print in calendar order")
}

func TestAgent_GeneralSearch(t *testing.T) {
	out := answer(t, newTestAgent(testSearcher()), "tell me about pollinators")
	assert.Contains(t, out, "depends on Mango")
	assert.Contains(t, out, "Closest matching observations:")
}

func TestAgent_GeneralSearch_NothingFound(t *testing.T) {
	searcher := testSearcher()
	searcher.facts = nil
	searcher.observations = nil

	out := answer(t, newTestAgent(searcher), "tell me about dinosaurs")
	assert.Contains(t, out, "Nothing on record matches that question.")
}

func TestAgent_SearchErrorPropagates(t *testing.T) {
	a := newTestAgent(&fakeSearcher{err: errors.New("index down")})
	var out bytes.Buffer
	err := a.Answer(context.Background(), "give me an overview", &out)
	require.Error(t, err)
}

func TestAgent_Run_QuitCommands(t *testing.T) {
	for _, cmd := range []string{"quit", "exit", "q", "QUIT"} {
		t.Run(cmd, func(t *testing.T) {
			a := newTestAgent(testSearcher())
			var out bytes.Buffer
			err := a.Run(context.Background(), strings.NewReader(cmd+"\n"), &out)
			require.NoError(t, err)
		})
	}
}

func TestAgent_Run_AnswersThenQuits(t *testing.T) {
	a := newTestAgent(testSearcher())
	var out bytes.Buffer
	input := "what species do you track?\n\nquit\n"

	require.NoError(t, a.Run(context.Background(), strings.NewReader(input), &out))
	assert.Contains(t, out.String(), "Tracking 4 species")
}

func TestAgent_Run_EOFEndsSession(t *testing.T) {
	a := newTestAgent(testSearcher())
	var out bytes.Buffer
	require.NoError(t, a.Run(context.Background(), strings.NewReader(""), &out))
}

func TestAgent_Run_ReportsHandlerErrors(t *testing.T) {
	a := newTestAgent(&fakeSearcher{err: errors.New("index down")})
	var out bytes.Buffer
	input := "give me an overview\nquit\n"

	require.NoError(t, a.Run(context.Background(), strings.NewReader(input), &out))
	assert.Contains(t, out.String(), "Sorry, that failed:")
}
