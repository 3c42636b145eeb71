package vault

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"weightvault/pkg/logging"
	"weightvault/pkg/metrics"
)

const (
	// DefaultWeightCount is how many weights a demo package carries
	DefaultWeightCount = 1000

	demoOriginDocument = "1.pdf"
	demoFormat         = "TensorFlow/PyTorch Compatible"
	demoAuditHash      = "SHA256_VERIFIED_BY_OMNIVAULT"
)

// ServedPackage is the body of a successful get-weights response.
// Weights are fixed-precision strings, the way the vault has always sent them.
type ServedPackage struct {
	ID             string   `json:"id"`
	OriginDocument string   `json:"origin_document"`
	Format         string   `json:"format"`
	Weights        []string `json:"weights"`
	AuditHash      string   `json:"audit_hash"`
}

// Server is a local stand-in for the vault's get-weights API
type Server struct {
	count   int
	logger  logging.Logger
	metrics *metrics.MetricsCollector

	mu  sync.Mutex
	rng *rand.Rand
}

// NewServer creates a demo vault that generates count random weights per request
func NewServer(count int, logger logging.Logger, mc *metrics.MetricsCollector) *Server {
	if count <= 0 {
		count = DefaultWeightCount
	}
	return &Server{
		count:   count,
		logger:  logger,
		metrics: mc,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Handler wires the vault routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("/api/get-weights", s.handleGetWeights)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		s.metrics.RecordRequest("/api/get-weights", status, time.Since(start))
	}()

	if r.Method != http.MethodGet {
		status = http.StatusMethodNotAllowed
		http.Error(w, "GET only", status)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		status = http.StatusBadRequest
		writeJSON(w, status, map[string]string{"error": "No ID provided"})
		return
	}

	pkg := ServedPackage{
		ID:             id,
		OriginDocument: demoOriginDocument,
		Format:         demoFormat,
		Weights:        s.generate(),
		AuditHash:      demoAuditHash,
	}
	s.metrics.AddWeightsServed(len(pkg.Weights))
	s.logger.WithFields(map[string]interface{}{
		"id":      id,
		"weights": len(pkg.Weights),
	}).Info("Serving weight package")

	writeJSON(w, status, pkg)
}

func (s *Server) generate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, s.count)
	for i := range out {
		out[i] = fmt.Sprintf("%.8f", s.rng.Float64())
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
