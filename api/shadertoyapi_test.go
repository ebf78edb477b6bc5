package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const apiDocument = `{"Shader":{"info":{"id":"abc123","name":"Waves"},"renderpass":[
	{"type":"image","code":"void mainImage(out vec4 c, in vec2 p) { c = vec4(1.0); }","inputs":[
		{"channel":0,"ctype":"texture","src":"/media/a/tex.png"},
		{"channel":1,"ctype":"keyboard","src":"/presets/tex00.png"}
	]}]}}`

const rawDocument = `[{"info":{"id":"abc123","name":"Raw Waves"},"renderpass":[
	{"type":"image","code":"void mainImage(out vec4 c, in vec2 p) { c = vec4(0.0); }","inputs":[
		{"channel":2,"type":"cubemap","filepath":"/media/a/cube.png"}
	]}]}]`

func TestShaderID(t *testing.T) {
	tests := map[string]string{
		"abc123":                                 "abc123",
		"https://www.shadertoy.com/view/abc123":  "abc123",
		"https://www.shadertoy.com/view/abc123/": "abc123",
	}
	for in, want := range tests {
		got, err := ShaderID(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "/", "ab-12", "../x y"} {
		_, err := ShaderID(in)
		assert.Error(t, err, in)
	}
}

type site struct {
	apiCalls atomic.Int32
	rawCalls atomic.Int32
	api      string
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/shaders/abc123":
		s.apiCalls.Add(1)
		if r.URL.Query().Get("key") != "secret" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(s.api))
	case "/shadertoy":
		s.rawCalls.Add(1)
		if r.Method != http.MethodPost || r.FormValue("s") != `{"shaders":["abc123"]}` {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(rawDocument))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, s *site, key string, cache bool) *Client {
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	dir := ""
	if cache {
		dir = filepath.Join(t.TempDir(), "shaders")
	}
	c := NewClient(key, dir, zap.NewNop())
	c.BaseURL = srv.URL
	c.HTTP = srv.Client()
	return c
}

func TestFetchUsesAPIWithKey(t *testing.T) {
	s := &site{api: apiDocument}
	c := newTestClient(t, s, "secret", false)

	doc, err := c.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, "Waves", doc.Name)
	assert.Equal(t, document.Channel{Kind: document.KindTexture, Source: "/media/a/tex.png"}, doc.Channels[0])
	assert.True(t, doc.Channels[1].IsEmpty(), "keyboard input is dropped")
	assert.Equal(t, int32(1), s.apiCalls.Load())
	assert.Equal(t, int32(0), s.rawCalls.Load())
}

func TestFetchFallsBackToSiteEndpoint(t *testing.T) {
	s := &site{api: `{"Error":"Shader not found"}`}
	c := newTestClient(t, s, "secret", false)

	doc, err := c.Fetch(context.Background(), "https://www.shadertoy.com/view/abc123")
	require.NoError(t, err)
	assert.Equal(t, "Raw Waves", doc.Name)
	assert.Equal(t, document.Channel{Kind: document.KindCubemap, Source: "/media/a/cube.png"}, doc.Channels[2])
	assert.Equal(t, int32(1), s.rawCalls.Load())
}

func TestFetchWithoutKeySkipsAPI(t *testing.T) {
	s := &site{api: apiDocument}
	c := newTestClient(t, s, "", false)

	_, err := c.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, int32(0), s.apiCalls.Load())
	assert.Equal(t, int32(1), s.rawCalls.Load())
}

func TestFetchCaches(t *testing.T) {
	s := &site{api: apiDocument}
	c := newTestClient(t, s, "secret", true)

	first, err := c.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(c.CacheDir, "abc123.json"))

	second, err := c.Fetch(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), s.apiCalls.Load())
}

func TestFetchNotFound(t *testing.T) {
	c := newTestClient(t, &site{}, "", false)
	_, err := c.Fetch(context.Background(), "zzz999")
	assert.ErrorContains(t, err, "404")
}
