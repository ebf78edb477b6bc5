package document

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullShader() *Shader {
	return &Shader{
		Name: "Plasma <&> ]]> edge",
		FragmentSource: `#pragma vr
void main() {
    FragColor = texture(iChannel0, gl_FragCoord.xy / iResolution.xy);
}
`,
		Channels: [MaxChannels]Channel{
			{Kind: KindTexture, Source: "qrc:/textures/tex00.png"},
			{Kind: KindCubemap, Source: "preset://cube/01"},
			{Kind: KindVideo, Source: "/presets/vid00.ogv"},
			{Kind: KindAudio, Source: "/home/user/music.mp3"},
		},
	}
}

func TestXMLRoundTrip(t *testing.T) {
	orig := fullShader()

	var buf bytes.Buffer
	require.NoError(t, EncodeXML(&buf, orig))
	assert.Contains(t, buf.String(), "<shadertoy>")

	got, err := DecodeXML(&buf)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestJSONRoundTrip(t *testing.T) {
	orig := fullShader()

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, orig))
	assert.Contains(t, buf.String(), `"ctype": "music"`)

	got, err := DecodeJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestRoundTripKeepsEmptySlots(t *testing.T) {
	orig := &Shader{
		Name:           "sparse",
		FragmentSource: "void main() { FragColor = vec4(1.0); }",
	}
	orig.Channels[2] = Channel{Kind: KindTexture, Source: "qrc:/textures/tex03.png"}

	for name, codec := range map[string]struct {
		enc func(*bytes.Buffer, *Shader) error
		dec func(*bytes.Buffer) (*Shader, error)
	}{
		"xml": {
			enc: func(b *bytes.Buffer, s *Shader) error { return EncodeXML(b, s) },
			dec: func(b *bytes.Buffer) (*Shader, error) { return DecodeXML(b) },
		},
		"json": {
			enc: func(b *bytes.Buffer, s *Shader) error { return EncodeJSON(b, s) },
			dec: func(b *bytes.Buffer) (*Shader, error) { return DecodeJSON(b) },
		},
	} {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, codec.enc(&buf, orig))
			got, err := codec.dec(&buf)
			require.NoError(t, err)
			assert.Equal(t, orig, got)
		})
	}
}

func TestDecodeFoldsCRLF(t *testing.T) {
	const want = "void main() {\n    FragColor = vec4(1.0);\n}\n"
	docs := map[string]struct {
		raw string
		dec func(*bytes.Buffer) (*Shader, error)
	}{
		"xml": {
			raw: "<shadertoy><name>crlf</name><fragmentSource><![CDATA[" +
				"void main() {\r\n    FragColor = vec4(1.0);\r\n}\r\n]]></fragmentSource></shadertoy>",
			dec: func(b *bytes.Buffer) (*Shader, error) { return DecodeXML(b) },
		},
		"json": {
			raw: `{"Shader":{"info":{"name":"crlf"},"renderpass":[{"type":"image","inputs":[],` +
				`"code":"void main() {\r\n    FragColor = vec4(1.0);\r\n}\r\n"}]}}`,
			dec: func(b *bytes.Buffer) (*Shader, error) { return DecodeJSON(b) },
		},
	}
	for name, doc := range docs {
		t.Run(name, func(t *testing.T) {
			loaded, err := doc.dec(bytes.NewBufferString(doc.raw))
			require.NoError(t, err)
			assert.Equal(t, want, loaded.FragmentSource)

			var xmlBuf, jsonBuf bytes.Buffer
			require.NoError(t, EncodeXML(&xmlBuf, loaded))
			require.NoError(t, EncodeJSON(&jsonBuf, loaded))
			fromXML, err := DecodeXML(&xmlBuf)
			require.NoError(t, err)
			fromJSON, err := DecodeJSON(&jsonBuf)
			require.NoError(t, err)
			assert.Equal(t, loaded, fromXML)
			assert.Equal(t, loaded, fromJSON)
		})
	}
}

func TestDecodeShadertoyAPIDocument(t *testing.T) {
	doc := `{
  "Shader": {
    "info": {"id": "XsX3RB", "name": "Clouds", "username": "iq"},
    "renderpass": [
      {"type": "common", "code": "float common;", "inputs": []},
      {
        "type": "image",
        "name": "Image",
        "code": "void mainImage(out vec4 c, in vec2 p) { c = vec4(0); }",
        "inputs": [
          {"channel": 1, "ctype": "texture", "src": "/presets/tex16.png", "sampler": {"filter": "mipmap"}},
          {"channel": 3, "ctype": "mic", "src": ""}
        ]
      }
    ]
  }
}`
	s, err := DecodeJSON(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "Clouds", s.Name)
	assert.Contains(t, s.FragmentSource, "mainImage")
	assert.True(t, s.Channels[0].IsEmpty())
	assert.Equal(t, Channel{Kind: KindTexture, Source: "/presets/tex16.png"}, s.Channels[1])
	assert.Equal(t, KindAudio, s.Channels[3].Kind)
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeJSON(strings.NewReader(`{"Error": "Shader not found"}`))
	assert.ErrorContains(t, err, "Shader not found")

	_, err = DecodeJSON(strings.NewReader(`{"Shader": {"info": {"name": "x"}, "renderpass": []}}`))
	assert.ErrorContains(t, err, "no image pass")

	_, err = DecodeXML(strings.NewReader(`<shadertoy><channel id="7" type="texture" source="a"/></shadertoy>`))
	assert.ErrorContains(t, err, "invalid channel index 7")

	_, err = DecodeXML(strings.NewReader(`<shadertoy><channel id="0" type="hologram" source="a"/></shadertoy>`))
	assert.ErrorContains(t, err, "unknown channel type")
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"":            KindNone,
		"texture":     KindTexture,
		"Cubemap":     KindCubemap,
		"webcam":      KindVideo,
		"musicstream": KindAudio,
		"mic":         KindAudio,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSaveLoadByExtension(t *testing.T) {
	dir := t.TempDir()
	orig := fullShader()

	for _, name := range []string{"shaders/a.xml", "shaders/b.json", "shaders/c.XML"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, orig))
		got, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, orig, got, name)
	}

	path := filepath.Join(dir, "d.glsl")
	require.NoError(t, os.WriteFile(path, []byte("void main(){}"), 0644))
	_, err := Load(path)
	assert.ErrorContains(t, err, "don't know how to parse")
}

func TestLoadFS(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeXML(&buf, fullShader()))
	fsys := fstest.MapFS{
		"presets/plasma.xml": {Data: buf.Bytes()},
		"presets/plasma.txt": {Data: buf.Bytes()},
	}

	got, err := LoadFS(fsys, "presets/plasma.xml")
	require.NoError(t, err)
	assert.Equal(t, fullShader(), got)

	_, err = LoadFS(fsys, "presets/plasma.txt")
	assert.Error(t, err)
	_, err = LoadFS(fsys, "presets/missing.xml")
	assert.Error(t, err)
}
