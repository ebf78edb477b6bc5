// Package assets bundles the stock textures, cubemaps, pointer sprite and
// preset shaders. Bundled files are addressed as "qrc:/<path>".
package assets

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/richinsley/goshadertoyvr/document"
	"github.com/richinsley/goshadertoyvr/inputs"
)

//go:embed textures cubemaps images presets
var FS embed.FS

// CursorID is the pointer sprite drawn on the UI surface.
const CursorID = inputs.BundlePrefix + "images/cursor.png"

// Catalog numbers the bundled textures (textures/texNN.png) and cubemaps
// (cubemaps/cubeNN_0.png) by the NN in their names.
func Catalog() (inputs.Catalog, error) {
	textures, err := numbered("textures", "tex", ".png")
	if err != nil {
		return inputs.Catalog{}, err
	}
	cubemaps, err := numbered("cubemaps", "cube", "_0.png")
	if err != nil {
		return inputs.Catalog{}, err
	}
	return inputs.Catalog{Textures: textures, Cubemaps: cubemaps}, nil
}

func numbered(dir, prefix, suffix string) ([]string, error) {
	matches, err := fs.Glob(FS, path.Join(dir, prefix+"*"+suffix))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		num := strings.TrimSuffix(strings.TrimPrefix(path.Base(m), prefix), suffix)
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		for len(out) <= n {
			out = append(out, "")
		}
		out[n] = m
	}
	return out, nil
}

// Presets is the bundled shader list in file name order.
type Presets struct {
	fsys  fs.FS
	names []string
}

func NewPresets() (*Presets, error) {
	return newPresets(FS)
}

func newPresets(fsys fs.FS) (*Presets, error) {
	entries, err := fs.ReadDir(fsys, "presets")
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	p := &Presets{fsys: fsys}
	for _, e := range entries {
		switch path.Ext(e.Name()) {
		case ".xml", ".json":
			p.names = append(p.names, path.Join("presets", e.Name()))
		}
	}
	sort.Strings(p.names)
	return p, nil
}

func (p *Presets) Len() int { return len(p.names) }

// Name is the file the preset is read from.
func (p *Presets) Name(i int) string { return p.names[i] }

func (p *Presets) Load(i int) (*document.Shader, error) {
	if i < 0 || i >= len(p.names) {
		return nil, fmt.Errorf("preset %d out of range", i)
	}
	return document.LoadFS(p.fsys, p.names[i])
}
