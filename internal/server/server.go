// Package server exposes visibility queries over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"camview/internal/config"
	"camview/internal/scene"
	"camview/internal/visibility"
	"camview/pkg/scenefile"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const requestIDHeader = "X-Request-ID"

type ctxKey struct{}

type Server struct {
	loader *scenefile.Loader
	vis    config.Visibility
	log    *zap.Logger
	router *mux.Router

	mu     sync.RWMutex
	scenes map[string]*loadedScene
	// gens counts reloads per scene. A load that saw an older count
	// serves its result but does not cache it.
	gens map[string]uint64
}

type loadedScene struct {
	graph     *scene.Graph
	selection []string
}

type visibleResponse struct {
	RequestID string           `json:"request_id"`
	Scene     string           `json:"scene"`
	Camera    string           `json:"camera"`
	Objects   []string         `json:"objects"`
	Stats     visibility.Stats `json:"stats"`
	Failures  []string         `json:"failures,omitempty"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func New(loader *scenefile.Loader, vis config.Visibility, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		loader: loader,
		vis:    vis,
		log:    log,
		scenes: make(map[string]*loadedScene),
		gens:   make(map[string]uint64),
	}

	r := mux.NewRouter()
	r.Use(s.requestID, s.logRequests)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/v1/scenes/{scene:.+}/visible", s.visible).Methods(http.MethodGet)
	r.HandleFunc("/v1/scenes/{scene:.+}/reload", s.reload).Methods(http.MethodPost)
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// HTTPServer wraps the handler with the configured address and timeouts.
func (s *Server) HTTPServer(cfg config.Server) *http.Server {
	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) visible(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["scene"]
	id := RequestID(r.Context())
	q := r.URL.Query()

	opts := []visibility.Option{
		visibility.WithLogger(s.log.With(zap.String("request_id", id), zap.String("scene", name))),
	}
	for _, f := range []struct {
		param string
		def   bool
		opt   func(bool) visibility.Option
	}{
		{"strict", s.vis.Strict, visibility.WithStrict},
		{"overscan", s.vis.ApplyOverscan, visibility.WithOverscan},
		{"squeeze", s.vis.ApplySqueeze, visibility.WithSqueeze},
	} {
		v := f.def
		if raw := q.Get(f.param); raw != "" {
			b, err := strconv.ParseBool(raw)
			if err != nil {
				s.fail(w, r, http.StatusBadRequest, errors.New("invalid "+f.param+" value "+strconv.Quote(raw)))
				return
			}
			v = b
		}
		opts = append(opts, f.opt(v))
	}

	sc, err := s.scene(r.Context(), name)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}

	res, err := visibility.ObjectsInCamera(sc.graph, visibility.Request{
		Camera:    q.Get("camera"),
		Selection: sc.selection,
	}, opts...)
	if err != nil {
		s.fail(w, r, statusFor(err), err)
		return
	}

	resp := visibleResponse{
		RequestID: id,
		Scene:     name,
		Camera:    res.Camera,
		Objects:   res.Objects,
		Stats:     res.Stats,
	}
	if resp.Objects == nil {
		resp.Objects = []string{}
	}
	for _, f := range res.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["scene"]
	s.mu.Lock()
	s.gens[name]++
	delete(s.scenes, name)
	s.mu.Unlock()
	s.loader.Forget(name)
	w.WriteHeader(http.StatusNoContent)
}

// scene returns the built graph for name, loading it on first use.
func (s *Server) scene(ctx context.Context, name string) (*loadedScene, error) {
	s.mu.RLock()
	sc, ok := s.scenes[name]
	gen := s.gens[name]
	s.mu.RUnlock()
	if ok {
		return sc, nil
	}

	doc, err := s.loader.LoadDocument(ctx, name)
	if err != nil {
		return nil, err
	}
	g, err := scenefile.Build(doc)
	if err != nil {
		return nil, err
	}
	sc = &loadedScene{graph: g, selection: doc.Selection}

	s.mu.Lock()
	if s.gens[name] != gen {
		s.mu.Unlock()
		return sc, nil
	}
	// Another request may have built it while this one was loading.
	if existing, ok := s.scenes[name]; ok {
		s.mu.Unlock()
		return existing, nil
	}
	s.scenes[name] = sc
	s.mu.Unlock()
	s.log.Info("scene loaded", zap.String("scene", name), zap.Int("nodes", g.Len()))
	return sc, nil
}

func statusFor(err error) int {
	var qe *visibility.QueryError
	switch {
	case visibility.IsArgumentError(err):
		return http.StatusBadRequest
	case errors.Is(err, scenefile.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, scenefile.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &qe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("request_id", RequestID(r.Context())), zap.Error(err))
	}
	writeJSON(w, status, errorResponse{RequestID: RequestID(r.Context()), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("http request",
			zap.String("request_id", RequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
