package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tkivisto/ecugate/pkg/fsm"
)

// RESTServer serves the gateway's read-only JSON API:
//
//	GET /health            liveness plus current machine state
//	GET /api/ecus          identifiers of every ECU seen
//	GET /api/ecus/{id}     latest parameters of one ECU
//	GET /api/data          latest parameters of every ECU
//	GET /metrics           Prometheus metrics
type RESTServer struct {
	log    *zap.Logger
	server *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// NewRESTServer builds the server over the given store, machine and
// metrics. Nothing is bound until Start.
func NewRESTServer(addr string, log *zap.Logger, store *Store, machine *fsm.Machine, metrics *Metrics) *RESTServer {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"service": "ecu-gateway",
			"state":   machine.CurrentState(),
		})
	})

	mux.HandleFunc("GET /api/ecus", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ecus": store.ECUIDs()})
	})

	mux.HandleFunc("GET /api/ecus/{id}", func(w http.ResponseWriter, r *http.Request) {
		ecuID := r.PathValue("id")
		params, updatedAt, ok := store.Latest(ecuID)
		if !ok {
			writeError(w, http.StatusNotFound, "ECU not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ecuId":     ecuID,
			"data":      params,
			"updatedAt": updatedAt.UTC().Format(time.RFC3339),
		})
	})

	mux.HandleFunc("GET /api/data", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.All())
	})

	mux.Handle("GET /metrics", metrics.Handler())

	return &RESTServer{
		log: log,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start binds the listener and serves in a background goroutine. Like
// IngestServer.Start it returns once the port is open.
func (s *RESTServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.log.Info("rest listening", zap.String("addr", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("rest server failed", zap.Error(err))
		}
	}()
	return nil
}

// Addr returns the bound listener address.
func (s *RESTServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop gracefully shuts the server down, waiting up to the context's
// deadline for in-flight requests.
func (s *RESTServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": status, "message": message})
}
