// Package plot renders a serialized end-user document to an HTML page
// of time-series charts. It is purely a reader of the document schema:
// keys with the _d/_dd suffixes form chart groups and every _k key
// inside them becomes one series over the reconstructed time axis.
package plot

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

// Render writes one HTML page with a line chart per asset instance
// found in the document.
func Render(doc optimizer.Document, w io.Writer) error {
	axis, err := timeAxis(doc)
	if err != nil {
		return err
	}

	page := components.NewPage()
	page.PageTitle = "End-user dispatch"

	for _, key := range sortedKeys(doc) {
		switch {
		case strings.HasSuffix(key, "_dd"):
			group, ok := doc[key].(map[string]any)
			if !ok {
				continue
			}
			for _, sub := range sortedKeys(group) {
				nested, ok := group[sub].(map[string]any)
				if !ok {
					continue
				}
				for _, inner := range sortedKeys(nested) {
					if !strings.HasSuffix(inner, "_d") {
						continue
					}
					addGroupCharts(page, axis, groupTitle(key, sub)+" "+strings.TrimSuffix(inner, "_d"), nested[inner])
				}
			}
		case strings.HasSuffix(key, "_d"):
			addGroupCharts(page, axis, strings.TrimSuffix(key, "_d"), doc[key])
		}
	}
	return page.Render(w)
}

// RenderFile renders the document into an HTML file at path.
func RenderFile(doc optimizer.Document, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()
	return Render(doc, f)
}

// addGroupCharts adds one chart per instance of a _d group.
func addGroupCharts(page *components.Page, axis []string, title string, group any) {
	instances, ok := group.(map[string]any)
	if !ok {
		return
	}
	for _, idx := range sortedKeys(instances) {
		asset, ok := instances[idx].(map[string]any)
		if !ok {
			continue
		}
		chart := assetChart(axis, fmt.Sprintf("%s %s", strings.TrimSuffix(title, "s"), idx), asset)
		if chart != nil {
			page.AddCharts(chart)
		}
	}
}

// assetChart builds one line chart with a series per _k key, or nil
// when the asset has no time series.
func assetChart(axis []string, title string, asset map[string]any) *charts.Line {
	var seriesKeys []string
	for _, key := range sortedKeys(asset) {
		if strings.HasSuffix(key, "_k") {
			seriesKeys = append(seriesKeys, key)
		}
	}
	if len(seriesKeys) == 0 {
		return nil
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "time"}),
	)
	line.SetXAxis(axis)
	for _, key := range seriesKeys {
		values := numericSeries(asset[key])
		if values == nil {
			continue
		}
		data := make([]opts.LineData, len(values))
		for i, v := range values {
			data[i] = opts.LineData{Value: v}
		}
		line.AddSeries(key, data)
	}
	return line
}

// timeAxis reconstructs the horizon's wall-clock axis from the
// document's horizon, step length and start time.
func timeAxis(doc optimizer.Document) ([]string, error) {
	horizon, ok := intValue(doc["horizon_i"])
	if !ok || horizon <= 0 {
		return nil, fmt.Errorf("document key %q missing or invalid", "horizon_i")
	}
	deltaT, ok := floatValue(doc["delta_t_i"])
	if !ok || deltaT <= 0 {
		return nil, fmt.Errorf("document key %q missing or invalid", "delta_t_i")
	}
	startUnix, ok := floatValue(doc["start_time_i"])
	if !ok {
		return nil, fmt.Errorf("document key %q missing or invalid", "start_time_i")
	}

	start := time.Unix(int64(startUnix), 0).UTC()
	step := time.Duration(deltaT * float64(time.Hour))
	axis := make([]string, horizon)
	for k := range axis {
		axis[k] = start.Add(time.Duration(k) * step).Format("2006-01-02 15:04")
	}
	return axis, nil
}

func numericSeries(v any) []float64 {
	switch s := v.(type) {
	case []float64:
		return s
	case []any:
		out := make([]float64, len(s))
		for i, e := range s {
			f, ok := floatValue(e)
			if !ok {
				return nil
			}
			out[i] = f
		}
		return out
	}
	return nil
}

func floatValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func intValue(v any) (int, bool) {
	f, ok := floatValue(v)
	return int(f), ok
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// groupTitle names a nested group instance, e.g. "heatnode 0".
func groupTitle(key, idx string) string {
	return strings.TrimSuffix(strings.TrimSuffix(key, "_dd"), "s") + " " + idx
}
