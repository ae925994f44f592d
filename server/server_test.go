package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

func testServer(t *testing.T) (*WebServer, *httptest.Server) {
	t.Helper()
	ws := New(1, log.New(io.Discard, "", 0))
	ts := httptest.NewServer(ws.Handler())
	t.Cleanup(ts.Close)
	go ws.broadcastLoop()
	t.Cleanup(func() { close(ws.done) })
	return ws, ts
}

func exampleDocumentJSON(t *testing.T) []byte {
	t.Helper()
	cfg := &optimizer.Config{Horizon: 6, DeltaT: 0.25}
	eu := optimizer.NewEndUser(cfg)
	eu.StartTime = time.Date(2021, time.June, 1, 0, 0, 0, 0, time.UTC)

	consumer := optimizer.NewConsumer(cfg)
	for k := range consumer.PowerDesired {
		consumer.PowerDesired[k] = 30
	}
	eu.Consumers = append(eu.Consumers, consumer)

	raw, err := json.Marshal(eu.ToDocument())
	if err != nil {
		t.Fatalf("marshaling document: %v", err)
	}
	return raw
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var status StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("status.Status = %q, want ok", status.Status)
	}
	if status.RunsCount != 0 {
		t.Errorf("RunsCount = %d, want 0", status.RunsCount)
	}
}

func TestOptimizeEndpoint(t *testing.T) {
	srv, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/optimize", "application/json",
		bytes.NewReader(exampleDocumentJSON(t)))
	if err != nil {
		t.Fatalf("POST /api/optimize error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d, want 200 (%s)", resp.StatusCode, body)
	}

	var solved map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&solved); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if solved["include_results_i"] != true {
		t.Error("solved document does not include results")
	}

	srv.mu.RLock()
	defer srv.mu.RUnlock()
	if srv.runsCount != 1 {
		t.Errorf("runsCount = %d, want 1", srv.runsCount)
	}
	if srv.lastRun == nil || srv.lastRun.Status != optimizer.StatusOptimal {
		t.Errorf("lastRun = %+v, want Optimal", srv.lastRun)
	}
}

func TestOptimizeEndpointRejectsGarbage(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Post(ts.URL+"/api/optimize", "application/json",
		strings.NewReader(`{"not": "a document"}`))
	if err != nil {
		t.Fatalf("POST /api/optimize error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestOptimizeEndpointMethod(t *testing.T) {
	_, ts := testServer(t)

	resp, err := http.Get(ts.URL + "/api/optimize")
	if err != nil {
		t.Fatalf("GET /api/optimize error: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}

func TestWebsocketBroadcast(t *testing.T) {
	_, ts := testServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error: %v", err)
	}
	defer conn.Close()

	resp, err := http.Post(ts.URL+"/api/optimize", "application/json",
		bytes.NewReader(exampleDocumentJSON(t)))
	if err != nil {
		t.Fatalf("POST /api/optimize error: %v", err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading broadcast: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(payload, &doc); err != nil {
		t.Fatalf("broadcast is not a document: %v", err)
	}
	if doc["include_results_i"] != true {
		t.Error("broadcast document does not include results")
	}
}

func TestDisabledServer(t *testing.T) {
	if srv := New(0, log.Default()); srv != nil {
		t.Fatal("New(0) should return nil")
	}
}
