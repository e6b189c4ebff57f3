package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"camview/internal/config"
	"camview/pkg/scenefile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shotYAML = `
selection: [cam]
nodes:
  - name: cam
    translate: [0, 0, 10]
    children:
      - name: camShape
        kind: camera
        camera: {fov: 90, near_clip: 1, far_clip: 100, device_aspect_ratio: 1}
  - name: crate
    children:
      - name: crateShape
        kind: mesh
        bounds: {min: [-0.5, -0.5, -0.5], max: [0.5, 0.5, 0.5]}
  - name: gone
    translate: [0, 0, 500]
    children:
      - name: goneShape
        kind: mesh
        bounds: {min: [-1, -1, -1], max: [1, 1, 1]}
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.yaml"), []byte(shotYAML), 0o644))
	loader := scenefile.NewLoader(scenefile.DirSource{Root: dir}, true)
	return New(loader, config.Default().Visibility, nil), dir
}

func get(t *testing.T, h http.Handler, target string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestVisible(t *testing.T) {
	s, _ := newTestServer(t)
	rec := get(t, s.Handler(), "/v1/scenes/shot/visible", http.Header{requestIDHeader: {"req-42"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "req-42", rec.Header().Get(requestIDHeader))

	var resp visibleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "req-42", resp.RequestID)
	assert.Equal(t, "camShape", resp.Camera)
	assert.Equal(t, []string{"crate"}, resp.Objects)
	assert.Empty(t, resp.Failures)
	assert.Positive(t, resp.Stats.Visited)
}

func TestVisibleStatusCodes(t *testing.T) {
	s, _ := newTestServer(t)
	tests := []struct {
		name   string
		target string
		status int
	}{
		{name: "explicit camera", target: "/v1/scenes/shot/visible?camera=cam", status: http.StatusOK},
		{name: "not a camera", target: "/v1/scenes/shot/visible?camera=crate", status: http.StatusBadRequest},
		{name: "no such camera", target: "/v1/scenes/shot/visible?camera=nope", status: http.StatusBadRequest},
		{name: "ambiguous camera", target: "/v1/scenes/shot/visible?camera=*Shape", status: http.StatusBadRequest},
		{name: "bad flag", target: "/v1/scenes/shot/visible?strict=maybe", status: http.StatusBadRequest},
		{name: "unknown scene", target: "/v1/scenes/nowhere/visible", status: http.StatusNotFound},
		{name: "wrong method", target: "/v1/scenes/shot/reload", status: http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, s.Handler(), tt.target, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestVisibleEmptyListIsArray(t *testing.T) {
	s, dir := newTestServer(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.yaml"), []byte(`
nodes:
  - name: cam
    children:
      - {name: camShape, kind: camera}
`), 0o644))

	rec := get(t, s.Handler(), "/v1/scenes/empty/visible?camera=cam", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var raw map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.Equal(t, []any{}, raw["objects"])
}

func TestReload(t *testing.T) {
	s, dir := newTestServer(t)
	h := s.Handler()

	rec := get(t, h, "/v1/scenes/shot/visible", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Drop the crate; the cached scene still has it.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.yaml"), []byte(
		"selection: [cam]\nnodes:\n  - name: cam\n    children:\n      - {name: camShape, kind: camera}\n"), 0o644))
	rec = get(t, h, "/v1/scenes/shot/visible", nil)
	assert.Contains(t, rec.Body.String(), `"crate"`)

	req := httptest.NewRequest(http.MethodPost, "/v1/scenes/shot/reload", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rec = get(t, h, "/v1/scenes/shot/visible", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"crate"`)
}

// gatedSource holds the first Open until release is closed, after the file
// contents have already been read.
type gatedSource struct {
	scenefile.DirSource
	once    sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := g.DirSource.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, err
	}
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return io.NopCloser(bytes.NewReader(data)), nil
}

func TestReloadDuringLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.yaml"), []byte(shotYAML), 0o644))
	src := &gatedSource{
		DirSource: scenefile.DirSource{Root: dir},
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	s := New(scenefile.NewLoader(src, true), config.Default().Visibility, nil)
	h := s.Handler()

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		done <- get(t, h, "/v1/scenes/shot/visible", nil)
	}()
	<-src.entered

	// The file changes and a reload lands while the old contents are loading.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shot.yaml"), []byte(
		"selection: [cam]\nnodes:\n  - name: cam\n    children:\n      - {name: camShape, kind: camera}\n"), 0o644))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/scenes/shot/reload", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)

	close(src.release)
	rec := <-done
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"crate"`)

	rec = get(t, h, "/v1/scenes/shot/visible", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), `"crate"`)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(scenefile.ErrNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(scenefile.ErrSchema))

	_, err := scenefile.DirSource{Root: t.TempDir()}.Open(context.Background(), "../x.yaml")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusFor(err))

	_, err = scenefile.NewLoader(scenefile.DirSource{Root: t.TempDir()}, true).LoadDocument(context.Background(), "a//b")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusFor(err))
}
