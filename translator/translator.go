package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

// Translator turns WebGL2 shaders into desktop GLSL 4.10. The underlying
// translator is created on first use and serialized, since it is not safe
// for concurrent use.
type Translator struct {
	ctx context.Context

	once sync.Once
	err  error
	mu   sync.Mutex
	t    *gst.ShaderTranslator
}

func New(ctx context.Context) *Translator {
	return &Translator{ctx: ctx}
}

func (t *Translator) init() error {
	t.once.Do(func() {
		t.t, t.err = gst.NewShaderTranslator(t.ctx)
		if t.err != nil {
			t.err = fmt.Errorf("failed to create shader translator: %w", t.err)
		}
	})
	return t.err
}

// Translate converts src for stage ("vertex" or "fragment") and returns the
// translated code along with the name each declared variable was given.
func (t *Translator) Translate(stage string, src string) (string, map[string]string, error) {
	if err := t.init(); err != nil {
		return "", nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out, err := t.t.TranslateShader(src, stage, gst.ShaderSpecWebGL2, gst.OutputFormatGLSL410)
	if err != nil {
		return "", nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return out.Code, names, nil
}
