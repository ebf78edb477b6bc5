package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/richinsley/goshadertoyvr/document"
)

// The site endpoint returns an array of shaders whose inputs name their
// files differently from the API.
type rawShader struct {
	Info          document.ShaderInfo `json:"info"`
	RawRenderPass []rawRenderPass     `json:"renderpass"`
}

type rawRenderPass struct {
	Inputs []rawInput `json:"inputs"`
	Code   string     `json:"code"`
	Name   string     `json:"name"`
	Type   string     `json:"type"`
}

type rawInput struct {
	Filepath string            `json:"filepath"`
	Type     string            `json:"type"`
	Channel  int               `json:"channel"`
	Sampler  *document.Sampler `json:"sampler"`
}

// fetchRaw asks the site endpoint for shader id and converts it to the API
// document shape.
func (c *Client) fetchRaw(ctx context.Context, id string) (*document.ShadertoyResponse, error) {
	form := url.Values{}
	form.Set("s", fmt.Sprintf(`{"shaders":["%s"]}`, id))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/shadertoy", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", c.BaseURL)
	req.Header.Set("Referer", c.BaseURL+"/browse")
	body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch raw shader data for %s: %w", id, err)
	}

	var raw []rawShader
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode raw shader JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("raw shader response is empty for %s", id)
	}
	return &document.ShadertoyResponse{Shader: rawToShader(raw[0])}, nil
}

func rawToShader(raw rawShader) *document.ShadertoyShader {
	s := &document.ShadertoyShader{Info: raw.Info}
	for _, rp := range raw.RawRenderPass {
		pass := document.RenderPass{Code: rp.Code, Name: rp.Name, Type: rp.Type}
		for _, in := range rp.Inputs {
			pass.Inputs = append(pass.Inputs, document.Input{
				Channel: in.Channel,
				CType:   in.Type,
				Src:     in.Filepath,
				Sampler: in.Sampler,
			})
		}
		s.RenderPass = append(s.RenderPass, pass)
	}
	return s
}
