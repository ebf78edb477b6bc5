package document

import (
	"fmt"
	"io"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// --- Structs for the Shadertoy API document shape ---

type ShadertoyResponse struct {
	Shader *ShadertoyShader `json:"Shader"`
	Error  string           `json:"Error,omitempty"`
}

type ShadertoyShader struct {
	Info       ShaderInfo   `json:"info"`
	RenderPass []RenderPass `json:"renderpass"`
}

type ShaderInfo struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Username    string `json:"username,omitempty"`
	Description string `json:"description,omitempty"`
}

type RenderPass struct {
	Inputs  []Input  `json:"inputs"`
	Outputs []Output `json:"outputs,omitempty"`
	Code    string   `json:"code"`
	Name    string   `json:"name,omitempty"`
	Type    string   `json:"type"`
}

type Input struct {
	Channel int      `json:"channel"`
	CType   string   `json:"ctype"`
	Src     string   `json:"src"`
	Sampler *Sampler `json:"sampler,omitempty"`
}

type Output struct {
	ID      int `json:"id"`
	Channel int `json:"channel"`
}

type Sampler struct {
	Filter   string `json:"filter,omitempty"`
	Wrap     string `json:"wrap,omitempty"`
	VFlip    string `json:"vflip,omitempty"`
	SRGB     string `json:"srgb,omitempty"`
	Internal string `json:"internal,omitempty"`
}

// ctypeFor is the Shadertoy name of a channel kind.
func ctypeFor(k Kind) string {
	if k == KindAudio {
		return "music"
	}
	return string(k)
}

// DecodeJSON parses the structured form of a shader document. Only the image
// pass is used; common and buffer passes are not supported by this renderer.
func DecodeJSON(r io.Reader) (*Shader, error) {
	var resp ShadertoyResponse
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode shader JSON: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("shader document has error: %s", resp.Error)
	}
	if resp.Shader == nil {
		return nil, fmt.Errorf("invalid JSON document: 'Shader' key is missing")
	}

	var image *RenderPass
	for i := range resp.Shader.RenderPass {
		if resp.Shader.RenderPass[i].Type == "image" {
			image = &resp.Shader.RenderPass[i]
			break
		}
	}
	if image == nil {
		return nil, fmt.Errorf("shader document %q has no image pass", resp.Shader.Info.Name)
	}

	s := &Shader{
		Name:           resp.Shader.Info.Name,
		FragmentSource: normalizeNewlines(image.Code),
	}
	for _, inp := range image.Inputs {
		if inp.Channel < 0 || inp.Channel >= MaxChannels {
			return nil, fmt.Errorf("invalid channel index %d in shader JSON", inp.Channel)
		}
		kind, err := ParseKind(inp.CType)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", inp.Channel, err)
		}
		s.Channels[inp.Channel] = Channel{Kind: kind, Source: inp.Src}
	}
	return s, nil
}

// EncodeJSON writes the structured form of a shader document as a single
// image pass. Empty channels are omitted from the inputs list.
func EncodeJSON(w io.Writer, s *Shader) error {
	pass := RenderPass{
		Inputs: []Input{},
		Code:   s.FragmentSource,
		Name:   "Image",
		Type:   "image",
	}
	for i, ch := range s.Channels {
		if ch.IsEmpty() && ch.Kind == KindNone {
			continue
		}
		pass.Inputs = append(pass.Inputs, Input{
			Channel: i,
			CType:   ctypeFor(ch.Kind),
			Src:     ch.Source,
		})
	}
	sort.Slice(pass.Inputs, func(a, b int) bool { return pass.Inputs[a].Channel < pass.Inputs[b].Channel })

	resp := ShadertoyResponse{
		Shader: &ShadertoyShader{
			Info:       ShaderInfo{Name: s.Name},
			RenderPass: []RenderPass{pass},
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("failed to encode shader JSON: %w", err)
	}
	return nil
}
