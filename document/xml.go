package document

import (
	"encoding/xml"
	"fmt"
	"io"
)

type xmlShader struct {
	XMLName        xml.Name     `xml:"shadertoy"`
	Name           string       `xml:"name"`
	Channels       []xmlChannel `xml:"channel"`
	FragmentSource xmlSource    `xml:"fragmentSource"`
}

type xmlChannel struct {
	ID     int    `xml:"id,attr"`
	Type   string `xml:"type,attr,omitempty"`
	Source string `xml:"source,attr,omitempty"`
}

type xmlSource struct {
	Text string `xml:",cdata"`
}

// DecodeXML parses the markup form of a shader document.
func DecodeXML(r io.Reader) (*Shader, error) {
	var doc xmlShader
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode shader xml: %w", err)
	}

	s := &Shader{
		Name:           doc.Name,
		FragmentSource: normalizeNewlines(doc.FragmentSource.Text),
	}
	for _, ch := range doc.Channels {
		if ch.ID < 0 || ch.ID >= MaxChannels {
			return nil, fmt.Errorf("invalid channel index %d in shader xml", ch.ID)
		}
		kind, err := ParseKind(ch.Type)
		if err != nil {
			return nil, fmt.Errorf("channel %d: %w", ch.ID, err)
		}
		s.Channels[ch.ID] = Channel{Kind: kind, Source: ch.Source}
	}
	return s, nil
}

// EncodeXML writes the markup form of a shader document. All four channels
// are written, empty ones included, so the slot layout is explicit.
func EncodeXML(w io.Writer, s *Shader) error {
	doc := xmlShader{
		Name:           s.Name,
		FragmentSource: xmlSource{Text: s.FragmentSource},
	}
	for i, ch := range s.Channels {
		doc.Channels = append(doc.Channels, xmlChannel{
			ID:     i,
			Type:   string(ch.Kind),
			Source: ch.Source,
		})
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode shader xml: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
