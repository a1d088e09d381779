// Package api exposes a ttlmap.Map over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/ddirect/timestore"
	"github.com/ddirect/timestore/ttlmap"
	"github.com/gorilla/mux"
)

// TTLHeader carries the time left before a key expires. It is absent for keys that never expire.
const TTLHeader = "X-TTL-Remaining"

// Limits bound what a client may store. They can be replaced while the server runs.
type Limits struct {
	MaxTTL        time.Duration // zero means no cap
	MaxValueBytes int64
}

type Server struct {
	values  *ttlmap.Map[string, []byte]
	metrics http.Handler
	limits  atomic.Pointer[Limits]
	router  *mux.Router
}

// NewServer creates a Server over values. metrics, if not nil, is served on /metrics.
func NewServer(values *ttlmap.Map[string, []byte], limits Limits, metrics http.Handler) *Server {
	s := &Server{
		values:  values,
		metrics: metrics,
		router:  mux.NewRouter(),
	}
	s.SetLimits(limits)
	s.routes()
	return s
}

// Router returns the http.Handler to be used by http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) SetLimits(l Limits) {
	s.limits.Store(&l)
}

func (s *Server) routes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/keys", s.handleList()).Methods(http.MethodGet)
	api.HandleFunc("/keys/{key}", s.handlePut()).Methods(http.MethodPut)
	api.HandleFunc("/keys/{key}", s.handleGet()).Methods(http.MethodGet)
	api.HandleFunc("/keys/{key}", s.handleHead()).Methods(http.MethodHead)
	api.HandleFunc("/keys/{key}", s.handleDelete()).Methods(http.MethodDelete)

	s.router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("api: request", "method", r.Method, "path", r.URL.Path, "elapsed", time.Since(start))
	})
}

// parseTTL accepts a Go duration ("1m30s") or a whole number of seconds.
func parseTTL(v string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return 0, fmt.Errorf("ttl must not be negative")
		}
		if secs > math.MaxInt64/int64(time.Second) {
			return 0, fmt.Errorf("ttl %d s is out of range", secs)
		}
		return time.Duration(secs) * time.Second, nil
	}
	ttl, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid ttl %q", v)
	}
	if ttl < 0 {
		return 0, fmt.Errorf("ttl must not be negative")
	}
	return ttl, nil
}

func (s *Server) handlePut() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		limits := s.limits.Load()

		var opts []timestore.AddOption
		ttl := s.values.TTL()
		if v := r.URL.Query().Get("ttl"); v != "" {
			var err error
			if ttl, err = parseTTL(v); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			opts = append(opts, timestore.WithTTL(ttl))
		}
		if limits.MaxTTL > 0 && (ttl == 0 || ttl > limits.MaxTTL) {
			http.Error(w, fmt.Sprintf("ttl exceeds the maximum of %v", limits.MaxTTL), http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limits.MaxValueBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				http.Error(w, fmt.Sprintf("value exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "read body failed", http.StatusBadRequest)
			return
		}

		status := http.StatusOK
		if s.values.SetValue(timestore.MakeTTL[string](opts...)(key), body) {
			status = http.StatusCreated
		}
		s.writeTTL(w, key)
		w.WriteHeader(status)
	}
}

func (s *Server) handleGet() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		v, ok := s.values.Get(key)
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.writeTTL(w, key)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(v)
	}
}

func (s *Server) handleHead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["key"]
		if !s.writeTTL(w, key) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) handleDelete() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.values.Delete(mux.Vars(r)["key"]) {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := slices.Sorted(s.values.Keys())
		if keys == nil {
			keys = []string{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keys)
	}
}

// writeTTL sets TTLHeader for key, reporting whether the key is present.
func (s *Server) writeTTL(w http.ResponseWriter, key string) bool {
	e, ok := s.values.Store().Get(key)
	if !ok {
		return false
	}
	if e.TTL > 0 {
		remaining, _ := s.values.Store().Remaining(key)
		w.Header().Set(TTLHeader, strconv.FormatFloat(remaining.Seconds(), 'f', -1, 64))
	}
	return true
}
