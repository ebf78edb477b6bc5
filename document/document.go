package document

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// MaxChannels is the number of iChannel inputs a shader can sample from.
const MaxChannels = 4

// Kind is the type of input bound to a channel.
type Kind string

const (
	KindNone    Kind = ""
	KindTexture Kind = "texture"
	KindCubemap Kind = "cubemap"
	KindVideo   Kind = "video"
	KindAudio   Kind = "audio"
)

// ParseKind maps the ctype strings found in shader documents onto a Kind.
// Shadertoy calls audio inputs "music", "musicstream" or "mic".
func ParseKind(ctype string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(ctype)) {
	case "":
		return KindNone, nil
	case "texture", "tex", "2d":
		return KindTexture, nil
	case "cubemap", "cube":
		return KindCubemap, nil
	case "video", "webcam":
		return KindVideo, nil
	case "audio", "music", "musicstream", "mic":
		return KindAudio, nil
	default:
		return KindNone, fmt.Errorf("unknown channel type %q", ctype)
	}
}

// Channel describes one input of a shader document.
type Channel struct {
	Kind   Kind
	Source string
}

// IsEmpty reports whether the channel has nothing bound to it.
func (c Channel) IsEmpty() bool {
	return c.Source == ""
}

// Shader is the persisted form of a user shader: a display name, the
// fragment source text and the four channel descriptors.
type Shader struct {
	Name           string
	FragmentSource string
	Channels       [MaxChannels]Channel
}

// XML parsers fold CR and CRLF line breaks into LF, so both forms load
// source text that way and saved documents compare equal to loaded ones.
var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeNewlines(src string) string {
	return newlines.Replace(src)
}

// Load reads a shader document, choosing the format from the file extension.
func Load(path string) (*Shader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shader document %s: %w", path, err)
	}
	defer f.Close()
	return decode(f, path)
}

// LoadFS reads a shader document from fsys, such as the bundled presets.
func LoadFS(fsys fs.FS, name string) (*Shader, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open shader document %s: %w", name, err)
	}
	defer f.Close()
	return decode(f, name)
}

func decode(r io.Reader, path string) (*Shader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return DecodeXML(r)
	case ".json":
		return DecodeJSON(r)
	default:
		return nil, fmt.Errorf("don't know how to parse path %s", path)
	}
}

// Save writes a shader document, choosing the format from the file extension.
// Paths without a recognised extension are written as XML.
func Save(path string, s *Shader) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create shader document %s: %w", path, err)
	}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		err = EncodeJSON(f, s)
	} else {
		err = EncodeXML(f, s)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write shader document %s: %w", path, err)
	}
	return nil
}
