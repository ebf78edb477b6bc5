package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingTarget struct {
	mu      sync.Mutex
	docs    []*document.Shader
	sources []string
}

func (r *recordingTarget) LoadDocument(doc *document.Shader) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = append(r.docs, doc)
}

func (r *recordingTarget) SetShaderSource(src string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

func (r *recordingTarget) counts() (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.docs), len(r.sources)
}

func TestReloadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.xml")
	doc := &document.Shader{Name: "wave", FragmentSource: "void main() {}"}
	doc.Channels[0] = document.Channel{Kind: document.KindTexture, Source: "qrc:/textures/tex00.png"}
	require.NoError(t, document.Save(path, doc))

	target := &recordingTarget{}
	w, err := New(path, target, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Reload())

	require.Len(t, target.docs, 1)
	assert.Equal(t, *doc, *target.docs[0])
}

func TestReloadBareSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wave.frag")
	require.NoError(t, os.WriteFile(path, []byte("void main() {}"), 0o644))

	target := &recordingTarget{}
	w, err := New(path, target, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Reload())
	assert.Equal(t, []string{"void main() {}"}, target.sources)
}

func TestReloadMissingFile(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing.xml"), &recordingTarget{}, zap.NewNop())
	require.NoError(t, err)
	assert.Error(t, w.Reload())
}

func TestRunReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wave.frag")
	require.NoError(t, os.WriteFile(path, []byte("one"), 0o644))

	target := &recordingTarget{}
	w, err := New(path, target, zap.NewNop())
	require.NoError(t, err)
	w.Debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Writes to other files in the directory are ignored.
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "other.frag"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(path, []byte("two"), 0o644))
		_, n := target.counts()
		return n > 0
	}, 2*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	target.mu.Lock()
	defer target.mu.Unlock()
	for _, src := range target.sources {
		assert.Equal(t, "two", src)
	}
}
