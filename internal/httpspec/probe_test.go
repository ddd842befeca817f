package httpspec

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msoedov/agentic-security/internal/httpclient"
)

type fakeTransport struct {
	status      int
	body        string
	contentType string
}

func (f fakeTransport) RoundTrip(*http.Request) (*http.Response, error) {
	h := make(http.Header)
	if f.contentType != "" {
		h.Set("Content-Type", f.contentType)
	}

	return &http.Response{
		StatusCode: f.status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(f.body)),
	}, nil
}

func TestVerify_PlainTextBody(t *testing.T) {
	spec, err := Parse("POST https://x/\nContent-Type: application/json\n\n{\"p\":\"<<PROMPT>>\"}")
	require.NoError(t, err)

	client := httpclient.NewClient(time.Second)
	client.HTTPClient.Transport = fakeTransport{status: 200, body: "ok"}

	ok, preview, err := Verify(context.Background(), client, spec)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ok", preview)
}

func TestCollapseStream_JoinsSSEDataFrames(t *testing.T) {
	resp := &httpclient.Response{
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": {"text/event-stream"}},
		Body:       []byte("data: hello\n\ndata: world\n\n"),
	}

	out := CollapseStream(resp)
	assert.Equal(t, "helloworld", string(out))
}

func TestCollapseStream_PassesThroughNonStreamBody(t *testing.T) {
	resp := &httpclient.Response{
		StatusCode: 200,
		Headers:    http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"ok":true}`),
	}

	out := CollapseStream(resp)
	assert.Equal(t, `{"ok":true}`, string(out))
}
