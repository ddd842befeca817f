package httpspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	blueprint := "POST https://x.example/v1/chat\n" +
		"Content-Type: application/json\n" +
		"Authorization: Bearer token\n" +
		"\n" +
		"{\"p\":\"<<PROMPT>>\"}\n"

	spec, err := Parse(blueprint)
	require.NoError(t, err)

	assert.Equal(t, blueprint, Print(spec))
}

func TestParse_TrailingNewlineNormalized(t *testing.T) {
	blueprint := "GET https://x.example/\n\n"

	spec, err := Parse(blueprint)
	require.NoError(t, err)

	assert.Equal(t, blueprint, Print(spec))
}

func TestParse_MissingBlankLine(t *testing.T) {
	blueprint := "POST https://x.example/\nContent-Type: application/json"

	_, err := Parse(blueprint)
	require.Error(t, err)
	assert.IsType(t, &SpecError{}, err)
}

func TestParse_UnknownMethod(t *testing.T) {
	_, err := Parse("FETCH https://x.example/\n\n")
	require.Error(t, err)
	assert.IsType(t, &SpecError{}, err)
}

func TestParse_InvalidURL(t *testing.T) {
	_, err := Parse("GET not-a-url\n\n")
	require.Error(t, err)
	assert.IsType(t, &SpecError{}, err)
}

func TestParse_MalformedHeaderLine(t *testing.T) {
	_, err := Parse("GET https://x.example/\nnot-a-header\n\n")
	require.Error(t, err)
	assert.IsType(t, &SpecError{}, err)
}

func TestDetectModality_Cases(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		want        Modality
	}{
		{"text only", "application/json", `{"p":"<<PROMPT>>"}`, ModalityText},
		{"image", "application/json", `{"p":"<<PROMPT>>","img":"<<BASE64_IMAGE>>"}`, ModalityImage},
		{"audio", "application/json", `{"p":"<<PROMPT>>","a":"<<BASE64_AUDIO>>"}`, ModalityAudio},
		{"image takes priority over audio", "application/json", "<<BASE64_IMAGE>><<BASE64_AUDIO>>", ModalityImage},
		{"multipart always files", "multipart/form-data; boundary=x", "<<BASE64_IMAGE>>", ModalityFiles},
		{"empty body text", "application/json", "", ModalityText},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detectModality(tc.contentType, tc.body))
		})
	}
}
