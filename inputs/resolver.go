package inputs

import (
	"errors"
	"fmt"
	"sort"

	"github.com/richinsley/goshadertoyvr/metrics"
	"go.uber.org/zap"
)

var ErrTargetMismatch = errors.New("texture target does not match request")

// ResourceLoadError reports a channel resource that could not be read,
// decoded or uploaded.
type ResourceLoadError struct {
	ID  string
	Err error
}

func (e *ResourceLoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.ID, e.Err)
}

func (e *ResourceLoadError) Unwrap() error { return e.Err }

// Resolver turns channel identifiers into GPU textures. Identifiers are
// de-aliased, then looked up in the cache, then loaded. Cache entries live
// until Release.
//
// A Resolver belongs to the render thread.
type Resolver struct {
	Aliases *AliasTable

	loader   *Loader
	uploader Uploader
	cache    map[string]Texture
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewResolver(loader *Loader, uploader Uploader, log *zap.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{
		Aliases:  NewAliasTable(),
		loader:   loader,
		uploader: uploader,
		cache:    make(map[string]Texture),
		log:      log,
		metrics:  m,
	}
}

// Resolve returns the texture for id, loading and uploading it on first use.
func (r *Resolver) Resolve(id string, target Target) (Texture, error) {
	canonical, err := r.Aliases.Canonical(id)
	if err != nil {
		return Texture{}, err
	}
	if tex, ok := r.cache[canonical]; ok {
		if tex.Target != target {
			return Texture{}, &ResourceLoadError{ID: id, Err: fmt.Errorf("%w: cached as %s, requested %s", ErrTargetMismatch, tex.Target, target)}
		}
		return tex, nil
	}

	r.log.Debug("Texture not cached, loading", zap.String("id", id), zap.String("canonical", canonical))
	tex, err := r.load(canonical, target)
	if err != nil {
		return Texture{}, &ResourceLoadError{ID: id, Err: err}
	}
	r.cache[canonical] = tex
	r.metrics.TextureUploaded(target.String())
	r.log.Info("Loaded texture",
		zap.String("id", canonical),
		zap.Stringer("target", target),
		zap.Int("width", tex.Width),
		zap.Int("height", tex.Height))
	return tex, nil
}

func (r *Resolver) load(id string, target Target) (Texture, error) {
	tex := Texture{Target: target}
	switch target {
	case TargetCubemap:
		faces, err := r.loader.LoadCubemap(id, LoadOptions{})
		if err != nil {
			return tex, err
		}
		if tex.ID, err = r.uploader.UploadCubemap(faces); err != nil {
			return tex, err
		}
		tex.Width, tex.Height = faces[0].Rect.Dx(), faces[0].Rect.Dy()
	default:
		img, err := r.loader.LoadImage(id, LoadOptions{})
		if err != nil {
			return tex, err
		}
		if tex.ID, err = r.uploader.UploadPlane(img); err != nil {
			return tex, err
		}
		tex.Width, tex.Height = img.Rect.Dx(), img.Rect.Dy()
	}
	return tex, nil
}

// Cached returns the canonical identifiers currently in the cache, sorted.
func (r *Resolver) Cached() []string {
	ids := make([]string, 0, len(r.cache))
	for id := range r.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Release deletes every cached texture.
func (r *Resolver) Release() {
	for id, tex := range r.cache {
		r.uploader.DeleteTexture(tex.ID)
		delete(r.cache, id)
	}
}
