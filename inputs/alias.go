package inputs

import (
	"errors"
	"fmt"
	"path"
)

// MaxAliasHops bounds how far an alias chain is followed.
const MaxAliasHops = 8

var (
	ErrAliasCycle = errors.New("alias chain is cyclic")
	ErrAliasDepth = errors.New("alias chain is too deep")
)

// AliasResolutionError reports an identifier whose alias chain does not end
// at a canonical identifier.
type AliasResolutionError struct {
	ID    string
	Chain []string
	Err   error
}

func (e *AliasResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve %q: %v (%v)", e.ID, e.Err, e.Chain)
}

func (e *AliasResolutionError) Unwrap() error { return e.Err }

// AliasTable maps legacy and alternate identifiers onto canonical ones.
type AliasTable struct {
	m map[string]string
}

func NewAliasTable() *AliasTable {
	return &AliasTable{m: make(map[string]string)}
}

// Add maps alias onto target. Mapping an identifier onto itself is ignored.
func (a *AliasTable) Add(alias, target string) {
	if alias == target {
		return
	}
	a.m[alias] = target
}

func (a *AliasTable) Len() int { return len(a.m) }

// Canonical follows the chain starting at id until it reaches an identifier
// that is not an alias.
func (a *AliasTable) Canonical(id string) (string, error) {
	chain := []string{id}
	seen := map[string]bool{id: true}
	cur := id
	for hops := 0; ; hops++ {
		next, ok := a.m[cur]
		if !ok {
			return cur, nil
		}
		chain = append(chain, next)
		if seen[next] {
			return "", &AliasResolutionError{ID: id, Chain: chain, Err: ErrAliasCycle}
		}
		if hops+1 > MaxAliasHops {
			return "", &AliasResolutionError{ID: id, Chain: chain, Err: ErrAliasDepth}
		}
		seen[next] = true
		cur = next
	}
}

// Catalog lists the bundled textures and cubemaps by preset number. Entries
// are paths inside the bundle; a cubemap entry names its first face. Empty
// entries are holes in the numbering.
type Catalog struct {
	Textures []string
	Cubemaps []string
}

// RegisterCatalog installs the legacy preset identifiers for every bundled
// asset: "preset://tex/N", "preset://tex/NN" and "/presets/<file>", and the
// "cube" equivalents, all pointing at the "qrc:/" identifier.
func (a *AliasTable) RegisterCatalog(c Catalog) {
	register := func(kind string, entries []string) {
		for i, p := range entries {
			if p == "" {
				continue
			}
			canonical := BundlePrefix + p
			a.Add(fmt.Sprintf("preset://%s/%d", kind, i), canonical)
			a.Add(fmt.Sprintf("preset://%s/%02d", kind, i), canonical)
			a.Add("/presets/"+path.Base(p), canonical)
		}
	}
	register("tex", c.Textures)
	register("cube", c.Cubemaps)
}
