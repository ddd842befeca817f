package httpspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaterialize_JSONEscapesPrompt(t *testing.T) {
	spec, err := Parse("POST https://x.example/\nContent-Type: application/json\n\n{\"p\":\"<<PROMPT>>\"}\n")
	require.NoError(t, err)

	req, err := Materialize(spec, Payload{Kind: PayloadText, Prompt: `say "hi"` + "\nnewline"})
	require.NoError(t, err)

	assert.Contains(t, string(req.Body), `say \"hi\"\nnewline`)
	assert.NotContains(t, string(req.Body), PlaceholderPrompt)
}

func TestMaterialize_PlainBodyNotEscaped(t *testing.T) {
	spec, err := Parse("POST https://x.example/\nContent-Type: text/plain\n\n<<PROMPT>>\n")
	require.NoError(t, err)

	req, err := Materialize(spec, Payload{Kind: PayloadText, Prompt: `raw "quote"`})
	require.NoError(t, err)

	assert.Equal(t, "raw \"quote\"\n", string(req.Body))
}

func TestMaterialize_ModalityMismatch(t *testing.T) {
	spec, err := Parse("POST https://x.example/\nContent-Type: application/json\n\n{\"img\":\"<<BASE64_IMAGE>>\"}\n")
	require.NoError(t, err)

	_, err = Materialize(spec, Payload{Kind: PayloadAudio, AudioB64: "abc"})
	require.Error(t, err)
	assert.IsType(t, &ModalityError{}, err)
}

func TestMaterialize_SetsContentLength(t *testing.T) {
	spec, err := Parse("POST https://x.example/\nContent-Type: application/json\n\n{\"p\":\"<<PROMPT>>\"}\n")
	require.NoError(t, err)

	req, err := Materialize(spec, Payload{Kind: PayloadText, Prompt: "hi"})
	require.NoError(t, err)

	assert.NotEmpty(t, req.Headers.Get("Content-Length"))
}

func TestMaterialize_Files(t *testing.T) {
	spec, err := Parse("POST https://x.example/\nContent-Type: multipart/form-data; boundary=ignored\n\nignored\n")
	require.NoError(t, err)
	require.Equal(t, ModalityFiles, spec.Modality)

	req, err := Materialize(spec, Payload{
		Kind:   PayloadFiles,
		Prompt: "describe this",
		Files:  map[string][]byte{"upload": []byte("binary-data")},
	})
	require.NoError(t, err)

	assert.Contains(t, req.Headers.Get("Content-Type"), "multipart/form-data")
	assert.Contains(t, string(req.Body), "describe this")
	assert.Contains(t, string(req.Body), "binary-data")
}
