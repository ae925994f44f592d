package optimizer

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// docDiff recursively compares two document trees, treating NaN equal to
// NaN. It returns a description of the first difference, or "".
func docDiff(path string, a, b any) string {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return fmt.Sprintf("%s: type %T vs %T", path, a, b)
		}
		if len(av) != len(bv) {
			return fmt.Sprintf("%s: %d keys vs %d keys", path, len(av), len(bv))
		}
		for k, sub := range av {
			other, ok := bv[k]
			if !ok {
				return fmt.Sprintf("%s.%s: missing on one side", path, k)
			}
			if d := docDiff(path+"."+k, sub, other); d != "" {
				return d
			}
		}
		return ""
	case []float64:
		bv, ok := b.([]float64)
		if !ok {
			return fmt.Sprintf("%s: type %T vs %T", path, a, b)
		}
		if len(av) != len(bv) {
			return fmt.Sprintf("%s: length %d vs %d", path, len(av), len(bv))
		}
		for i := range av {
			if av[i] != bv[i] && !(math.IsNaN(av[i]) && math.IsNaN(bv[i])) {
				return fmt.Sprintf("%s[%d]: %g vs %g", path, i, av[i], bv[i])
			}
		}
		return ""
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return fmt.Sprintf("%s: type %T vs %T", path, a, b)
		}
		if av != bv && !(math.IsNaN(av) && math.IsNaN(bv)) {
			return fmt.Sprintf("%s: %g vs %g", path, av, bv)
		}
		return ""
	default:
		if a != b {
			return fmt.Sprintf("%s: %v vs %v", path, a, b)
		}
		return ""
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	for _, includeResults := range []bool{false, true} {
		t.Run(fmt.Sprintf("include_results=%v", includeResults), func(t *testing.T) {
			cfg := &Config{Horizon: 6, DeltaT: 0.25}
			eu := newExampleEndUser(cfg)
			if includeResults {
				eu.IncludeResults = true
				mustOptimize(t, eu)
			}
			exported := eu.ToDocument()

			loaded, err := LoadEndUser(exported)
			require.NoError(t, err)
			reExported := loaded.ToDocument()

			if diff := docDiff("doc", exported, reExported); diff != "" {
				t.Fatalf("round trip differs: %s", diff)
			}
		})
	}
}

func TestDocumentCarriesConfig(t *testing.T) {
	cfg := &Config{Horizon: 8, DeltaT: 0.5}
	eu := newExampleEndUser(cfg)
	doc := eu.ToDocument()

	loaded, err := LoadEndUser(doc)
	require.NoError(t, err)
	assert.Equal(t, 8, loaded.Config().Horizon)
	assert.Equal(t, 0.5, loaded.Config().DeltaT)
	assert.Equal(t, eu.StartTime.Unix(), loaded.StartTime.Unix())
	assert.Len(t, loaded.Producers, 1)
	assert.Len(t, loaded.Storages, 2)
	assert.Len(t, loaded.Consumers, 1)
	require.Len(t, loaded.HeatNodes, 1)
	assert.Len(t, loaded.HeatNodes[0].HeatProducers, 2)
	assert.Len(t, loaded.HeatNodes[0].HeatStorages, 1)
	assert.Len(t, loaded.HeatNodes[0].HeatConsumers, 1)
}

func TestDocumentSurvivesJSON(t *testing.T) {
	// The store and server ship documents as JSON; numbers come back as
	// float64 and groups as map[string]any.
	cfg := &Config{Horizon: 6, DeltaT: 0.25}
	eu := newExampleEndUser(cfg)
	doc := eu.ToDocument()

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	loaded, err := LoadEndUser(decoded)
	require.NoError(t, err)
	assert.Equal(t, eu.Grid.ImportTariff, loaded.Grid.ImportTariff)
	assert.Equal(t, eu.Consumers[0].PowerDesired, loaded.Consumers[0].PowerDesired)
	assert.Equal(t, eu.Grid.LossF, loaded.Grid.LossF)
	assert.Equal(t, eu.Grid.DischargeToGrid, loaded.Grid.DischargeToGrid)
}

func TestDocumentMissingKey(t *testing.T) {
	cfg := &Config{Horizon: 6, DeltaT: 0.25}
	eu := newExampleEndUser(cfg)
	doc := eu.ToDocument()
	delete(doc, "horizon_i")

	_, err := LoadEndUser(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "horizon_i")
}

func TestDocumentGroupOrdering(t *testing.T) {
	// Numeric group keys must load in numeric order, not lexicographic.
	cfg := &Config{Horizon: 4, DeltaT: 0.25}
	eu := NewEndUser(cfg)
	for i := 0; i < 11; i++ {
		p := NewProducer(cfg)
		p.PowerActual = cfg.filled(float64(i))
		eu.Producers = append(eu.Producers, p)
	}
	loaded, err := LoadEndUser(eu.ToDocument())
	require.NoError(t, err)
	require.Len(t, loaded.Producers, 11)
	for i, p := range loaded.Producers {
		assert.Equal(t, float64(i), p.PowerActual[0], "producer %d out of order", i)
	}
}
