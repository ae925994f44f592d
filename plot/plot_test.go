package plot

import (
	"bytes"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

func exampleDocument(t *testing.T, includeResults bool) optimizer.Document {
	t.Helper()
	cfg := &optimizer.Config{Horizon: 6, DeltaT: 0.25}
	eu := optimizer.NewEndUser(cfg)
	eu.Logger = log.New(io.Discard, "", 0)
	eu.StartTime = time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)

	producer := optimizer.NewProducer(cfg)
	for k := range producer.PowerActual {
		producer.PowerActual[k] = float64(10 * k)
	}
	eu.Producers = append(eu.Producers, producer)

	consumer := optimizer.NewConsumer(cfg)
	for k := range consumer.PowerDesired {
		consumer.PowerDesired[k] = 20
	}
	eu.Consumers = append(eu.Consumers, consumer)

	heatnode := optimizer.NewHeatNode(cfg)
	heatnode.HeatProducers = append(heatnode.HeatProducers, optimizer.NewHeatProducer(cfg))
	heatnode.HeatStorages = append(heatnode.HeatStorages, optimizer.NewHeatStorage(cfg))
	heatnode.HeatConsumers = append(heatnode.HeatConsumers, optimizer.NewHeatConsumer(cfg))
	eu.HeatNodes = append(eu.HeatNodes, heatnode)

	if includeResults {
		eu.IncludeResults = true
		if err := eu.Optimize(); err != nil {
			t.Fatalf("Optimize() error: %v", err)
		}
	}
	return eu.ToDocument()
}

func TestRenderProducesCharts(t *testing.T) {
	doc := exampleDocument(t, false)
	var buf bytes.Buffer
	if err := Render(doc, &buf); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	html := buf.String()

	// Input series of every group must show up; the heat node group is
	// doubly nested.
	for _, want := range []string{"power_actual_k", "power_desired_k", "import_tariff_k", "grid 0", "producer 0", "heatnode 0"} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered HTML does not mention %q", want)
		}
	}
	// The time axis is reconstructed from start_time_i.
	if !strings.Contains(html, "2021-06-01 00:00") {
		t.Error("rendered HTML does not carry the time axis")
	}
}

func TestRenderWithResults(t *testing.T) {
	doc := exampleDocument(t, true)
	var buf bytes.Buffer
	if err := Render(doc, &buf); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	for _, want := range []string{"power_import_k", "temperature_k", "running_k"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("rendered HTML does not mention result series %q", want)
		}
	}
}

func TestRenderRejectsBrokenDocument(t *testing.T) {
	doc := exampleDocument(t, false)
	delete(doc, "horizon_i")
	if err := Render(doc, &bytes.Buffer{}); err == nil {
		t.Fatal("Render() without horizon succeeded, want error")
	}
}
