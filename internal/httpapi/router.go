// Package httpapi exposes the pipeline trigger and read-only queries over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	interfaces "github.com/sheikh-saqib/banking-settlement-pipeline/internal/interfaces"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/logging"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/metrics"
	"github.com/sheikh-saqib/banking-settlement-pipeline/internal/pipeline"
)

// PipelineRunner runs the pipeline from an unparsed level parameter.
type PipelineRunner interface {
	RunRaw(ctx context.Context, raw string) (pipeline.Summary, error)
}

type handler struct {
	reader interfaces.BankingReader
	runner PipelineRunner
}

// NewRouter wires every route. logger is attached to each request context.
func NewRouter(reader interfaces.BankingReader, runner PipelineRunner, logger *logrus.Entry) http.Handler {
	h := &handler{reader: reader, runner: runner}

	r := mux.NewRouter()
	r.Use(requestLogger(logger))

	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/process/{processId}", h.handleProcess).Methods(http.MethodPost)

	r.HandleFunc("/person", h.handlePeople).Methods(http.MethodGet)
	r.HandleFunc("/person/max_borrow/{id}", h.handleMaxBorrow).Methods(http.MethodGet)

	r.HandleFunc("/account", h.handleAccounts).Methods(http.MethodGet)
	r.HandleFunc("/account/{personId}", h.handleAccountsByOwner).Methods(http.MethodGet)

	r.HandleFunc("/transactions", h.handleTransactions).Methods(http.MethodGet)
	r.HandleFunc("/transactions/person/{personId}", h.handleTransactionsByPerson).Methods(http.MethodGet)
	r.HandleFunc("/transactions/account/{iban}", h.handleTransactionsByAccount).Methods(http.MethodGet)

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

func requestLogger(base *logrus.Entry) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			entry := base.WithFields(logrus.Fields{
				"method": r.Method,
				"path":   r.URL.Path,
			})
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r.WithContext(logging.WithLogger(r.Context(), entry)))

			entry.WithFields(logrus.Fields{
				"status":   rec.status,
				"duration": time.Since(start).String(),
			}).Debug("request handled")
		})
	}
}
