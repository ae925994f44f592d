// Package server exposes the optimizer over HTTP: a health endpoint, a
// synchronous optimize endpoint consuming serialized end-user
// documents, and a websocket fan-out pushing every solved document to
// connected dashboard clients.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/devskill-org/enduseroptimizer/optimizer"
)

// WebServer provides the HTTP endpoints around the optimizer.
type WebServer struct {
	server    *http.Server
	logger    *log.Logger
	port      int
	startTime time.Time
	upgrader  websocket.Upgrader
	clients   sync.Map
	broadcast chan []byte
	done      chan struct{}

	mu        sync.RWMutex
	lastRun   *RunInfo
	runsCount int
}

// RunInfo summarizes the most recent optimization.
type RunInfo struct {
	Status     string    `json:"status"`
	Loss       float64   `json:"loss"`
	Horizon    int       `json:"horizon"`
	FinishedAt time.Time `json:"finished_at"`
	Elapsed    string    `json:"elapsed"`
}

// StatusResponse is the health check payload.
type StatusResponse struct {
	Status    string       `json:"status"`
	Timestamp string       `json:"timestamp"`
	System    SystemHealth `json:"system"`
	RunsCount int          `json:"runs_count"`
	LastRun   *RunInfo     `json:"last_run,omitempty"`
}

// SystemHealth reports process-level information.
type SystemHealth struct {
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
}

// New creates a web server listening on port. A non-positive port
// disables the server (New returns nil, and all methods are no-ops).
func New(port int, logger *log.Logger) *WebServer {
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	ws := &WebServer{
		logger:    logger,
		port:      port,
		startTime: time.Now(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
		broadcast: make(chan []byte, 256),
		done:      make(chan struct{}),
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	mux.HandleFunc("/api/health", ws.healthHandler)
	mux.HandleFunc("/api/optimize", ws.optimizeHandler)
	mux.HandleFunc("/api/ws", ws.wsHandler)
	return ws
}

// Handler returns the server's HTTP handler, mainly for tests.
func (ws *WebServer) Handler() http.Handler { return ws.server.Handler }

// Start starts listening and the broadcast loop. It returns
// immediately; errors from the listener are logged.
func (ws *WebServer) Start() {
	if ws == nil {
		return
	}
	go ws.broadcastLoop()
	go func() {
		ws.logger.Printf("Web server listening on :%d", ws.port)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ws.logger.Printf("Web server error: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (ws *WebServer) Stop(ctx context.Context) error {
	if ws == nil {
		return nil
	}
	close(ws.done)
	ws.clients.Range(func(key, _ any) bool {
		if conn, ok := key.(*websocket.Conn); ok {
			conn.Close()
		}
		return true
	})
	return ws.server.Shutdown(ctx)
}

func (ws *WebServer) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ws.mu.RLock()
	resp := StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().Format(time.RFC3339),
		System: SystemHealth{
			Uptime:     time.Since(ws.startTime).Round(time.Second).String(),
			Goroutines: runtime.NumGoroutine(),
		},
		RunsCount: ws.runsCount,
		LastRun:   ws.lastRun,
	}
	ws.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		ws.logger.Printf("Failed to encode health response: %v", err)
	}
}

// optimizeHandler accepts a serialized end-user document, solves it and
// responds with the solved document (results included). Validation
// problems map to 400, solver failures to 502; infeasibility is a
// normal 200. A solved document holding NaN results is not
// JSON-encodable, so such a run is answered with a status-only payload.
func (ws *WebServer) optimizeHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var doc optimizer.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		http.Error(w, fmt.Sprintf("invalid document: %v", err), http.StatusBadRequest)
		return
	}
	eu, err := optimizer.LoadEndUser(doc)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid document: %v", err), http.StatusBadRequest)
		return
	}
	eu.Logger = ws.logger

	started := time.Now()
	if err := eu.Optimize(); err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) {
			status = http.StatusBadGateway
		}
		http.Error(w, err.Error(), status)
		return
	}

	ws.mu.Lock()
	ws.runsCount++
	ws.lastRun = &RunInfo{
		Status:     eu.Status,
		Loss:       eu.Loss,
		Horizon:    eu.Config().Horizon,
		FinishedAt: time.Now(),
		Elapsed:    time.Since(started).Round(time.Millisecond).String(),
	}
	ws.mu.Unlock()

	solved := eu.ToDocument()
	payload, err := json.Marshal(solved)
	if err != nil {
		// NaN results (unsolved variables) are not representable in
		// JSON; respond with the run info only.
		ws.logger.Printf("Solved document not JSON-encodable: %v", err)
		w.Header().Set("Content-Type", "application/json")
		if encErr := json.NewEncoder(w).Encode(map[string]string{"status": eu.Status}); encErr != nil {
			ws.logger.Printf("Failed to encode fallback response: %v", encErr)
		}
		return
	}

	select {
	case ws.broadcast <- payload:
	default:
		ws.logger.Printf("Broadcast buffer full, dropping update")
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(payload); err != nil {
		ws.logger.Printf("Failed to write optimize response: %v", err)
	}
}

func isValidationError(err error) bool {
	for _, kind := range []error{
		optimizer.ErrInvalidShape,
		optimizer.ErrInvalidInput,
		optimizer.ErrUnknownObjective,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

func (ws *WebServer) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := ws.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ws.logger.Printf("Websocket upgrade failed: %v", err)
		return
	}
	ws.clients.Store(conn, struct{}{})
	ws.logger.Printf("Websocket client connected: %s", conn.RemoteAddr())

	// Reader loop only detects disconnects; clients do not send data.
	go func() {
		defer func() {
			ws.clients.Delete(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (ws *WebServer) broadcastLoop() {
	for {
		select {
		case <-ws.done:
			return
		case payload := <-ws.broadcast:
			ws.clients.Range(func(key, _ any) bool {
				conn := key.(*websocket.Conn)
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
					ws.clients.Delete(conn)
					conn.Close()
				}
				return true
			})
		}
	}
}
