package optimizer

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Document is the nested key/value form of an EndUser. Leaves are
// scalars or arrays; key suffixes carry type intent: _i scalar, _k
// per-step array, _b bool, _s string, _d single-nested group, _dd
// double-nested group. The form is JSON-friendly and is what the store,
// server and plot packages consume.
type Document = map[string]any

// ToDocument serializes the end user and its nested assets. Result
// arrays are included only when IncludeResults is set.
func (eu *EndUser) ToDocument() Document {
	data := Document{
		"horizon_i":         eu.cfg.Horizon,
		"delta_t_i":         eu.cfg.DeltaT,
		"include_results_i": eu.IncludeResults,
		"start_time_i":      float64(eu.StartTime.Unix()),
		"flexibility_i":     eu.Flexibility,
	}

	producers := map[string]any{}
	for i, p := range eu.Producers {
		producers[indexKey(i)] = p.toDocument(eu.IncludeResults)
	}
	data["producers_d"] = producers

	storages := map[string]any{}
	for i, s := range eu.Storages {
		storages[indexKey(i)] = s.toDocument(eu.IncludeResults)
	}
	data["storages_d"] = storages

	consumers := map[string]any{}
	for i, c := range eu.Consumers {
		consumers[indexKey(i)] = c.toDocument(eu.IncludeResults)
	}
	data["consumers_d"] = consumers

	heatnodes := map[string]any{}
	for i, hn := range eu.HeatNodes {
		heatnodes[indexKey(i)] = hn.toDocument(eu.IncludeResults)
	}
	data["heatnodes_dd"] = heatnodes

	data["grid_d"] = map[string]any{"0": eu.Grid.toDocument(eu.IncludeResults)}

	if eu.IncludeResults {
		data["loss_i"] = eu.Loss
	}
	return data
}

// LoadEndUser rebuilds an EndUser from its serialized form. The horizon
// and step length recorded in the document are re-applied first, so the
// returned end user carries its own Config.
func LoadEndUser(data Document) (*EndUser, error) {
	horizon, err := docInt(data, "horizon_i")
	if err != nil {
		return nil, err
	}
	deltaT, err := docFloat(data, "delta_t_i")
	if err != nil {
		return nil, err
	}
	cfg := &Config{Horizon: horizon, DeltaT: deltaT}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("document carries invalid configuration: %w", err)
	}

	eu := NewEndUser(cfg)
	if eu.IncludeResults, err = docBool(data, "include_results_i"); err != nil {
		return nil, err
	}
	startTime, err := docFloat(data, "start_time_i")
	if err != nil {
		return nil, err
	}
	eu.StartTime = time.Unix(int64(startTime), 0).UTC()
	if eu.Flexibility, err = docBool(data, "flexibility_i"); err != nil {
		return nil, err
	}

	producers, err := docGroup(data, "producers_d")
	if err != nil {
		return nil, err
	}
	for _, sub := range producers {
		p, err := producerFromDocument(sub, eu.IncludeResults)
		if err != nil {
			return nil, err
		}
		eu.Producers = append(eu.Producers, p)
	}

	storages, err := docGroup(data, "storages_d")
	if err != nil {
		return nil, err
	}
	for _, sub := range storages {
		s, err := storageFromDocument(sub, eu.IncludeResults)
		if err != nil {
			return nil, err
		}
		eu.Storages = append(eu.Storages, s)
	}

	consumers, err := docGroup(data, "consumers_d")
	if err != nil {
		return nil, err
	}
	for _, sub := range consumers {
		c, err := consumerFromDocument(sub, eu.IncludeResults)
		if err != nil {
			return nil, err
		}
		eu.Consumers = append(eu.Consumers, c)
	}

	heatnodes, err := docGroup(data, "heatnodes_dd")
	if err != nil {
		return nil, err
	}
	for _, sub := range heatnodes {
		hn, err := heatNodeFromDocument(sub, eu.IncludeResults)
		if err != nil {
			return nil, err
		}
		eu.HeatNodes = append(eu.HeatNodes, hn)
	}

	grids, err := docGroup(data, "grid_d")
	if err != nil {
		return nil, err
	}
	if len(grids) != 1 {
		return nil, fmt.Errorf("document key %q: want exactly one grid, got %d", "grid_d", len(grids))
	}
	if eu.Grid, err = gridFromDocument(grids[0], eu.IncludeResults); err != nil {
		return nil, err
	}

	if eu.IncludeResults {
		if eu.Loss, err = docFloat(data, "loss_i"); err != nil {
			return nil, err
		}
	}
	return eu, nil
}

func indexKey(i int) string { return strconv.Itoa(i) }

// floats copies a result or input array for the document, mapping a nil
// slice to an empty one so unsolved results serialize as [].
func floats(data []float64) []float64 {
	out := make([]float64, len(data))
	copy(out, data)
	return out
}

// Document accessors. JSON decoding turns every number into float64, so
// the numeric readers accept the common numeric types.

func docValue(data map[string]any, key string) (any, error) {
	v, ok := data[key]
	if !ok {
		return nil, fmt.Errorf("document key %q missing", key)
	}
	return v, nil
}

func docFloat(data map[string]any, key string) (float64, error) {
	v, err := docValue(data, key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("document key %q: want number, got %T", key, v)
}

func docInt(data map[string]any, key string) (int, error) {
	f, err := docFloat(data, key)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func docBool(data map[string]any, key string) (bool, error) {
	v, err := docValue(data, key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("document key %q: want bool, got %T", key, v)
	}
	return b, nil
}

func docString(data map[string]any, key string) (string, error) {
	v, err := docValue(data, key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("document key %q: want string, got %T", key, v)
	}
	return s, nil
}

func docFloats(data map[string]any, key string) ([]float64, error) {
	v, err := docValue(data, key)
	if err != nil {
		return nil, err
	}
	switch s := v.(type) {
	case []float64:
		return floats(s), nil
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := toFloat(e)
			if !ok {
				return nil, fmt.Errorf("document key %q: entry %d is %T, want number", key, i, e)
			}
			out[i] = f
		}
		return out, nil
	}
	return nil, fmt.Errorf("document key %q: want array, got %T", key, v)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// docGroup reads a _d/_dd group and returns its members ordered by
// numeric key, so "10" sorts after "9".
func docGroup(data map[string]any, key string) ([]map[string]any, error) {
	v, err := docValue(data, key)
	if err != nil {
		return nil, err
	}
	group, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document key %q: want nested group, got %T", key, v)
	}
	keys := make([]string, 0, len(group))
	for k := range group {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.Atoi(keys[i])
		b, errB := strconv.Atoi(keys[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return keys[i] < keys[j]
	})
	out := make([]map[string]any, 0, len(keys))
	for _, k := range keys {
		sub, ok := group[k].(map[string]any)
		if !ok {
			return nil, fmt.Errorf("document key %q[%s]: want nested group, got %T", key, k, group[k])
		}
		out = append(out, sub)
	}
	return out, nil
}
