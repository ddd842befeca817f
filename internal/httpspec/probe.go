package httpspec

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/tmaxmax/go-sse"

	"github.com/msoedov/agentic-security/internal/httpclient"
)

// CanaryPrompt is the literal prompt text used by Verify.
const CanaryPrompt = "Hello, world!"

// tiny, non-empty base64 payloads used only to exercise non-text specs
// during verification; they carry no meaningful content. The JPEG one is
// only the start of a JPEG header (truncated inside its first quantization
// table), and the WAV one is a complete header with zero samples.
const (
	tinyJPEGBase64 = "/9j/4AAQSkZJRgABAQEAYABgAAD//gA7Q1JFQVRPUjogZ2QtanBlZyB2MS4wICh1c2luZyBJSkcgSlBFRyB2NjIpLCBxdWFsaXR5ID0gOTAK/9sAQwAF"
	tinyWAVBase64  = "UklGRiQAAABXQVZFZm10IBAAAAABAAEAQB8AAEAfAAABAAgAZGF0YQAAAAA="
)

// Probe sends req using client and returns the response without
// interpreting its status code.
func Probe(ctx context.Context, client *httpclient.Client, req *httpclient.Request) (*httpclient.Response, error) {
	return client.Do(ctx, req)
}

// Verify issues a canary probe against spec with the literal prompt
// "Hello, world!" and reports whether the response was a 2xx.
func Verify(ctx context.Context, client *httpclient.Client, spec *Spec) (ok bool, bodyPreview string, err error) {
	payload := canaryPayload(spec.Modality)

	req, err := Materialize(spec, payload)
	if err != nil {
		return false, "", err
	}

	resp, err := Probe(ctx, client, req)
	if err != nil {
		return false, "", err
	}

	return resp.OK(), preview(CollapseStream(resp), 512), nil
}

// CollapseStream returns resp's body as a single string, joining each
// data frame of a Server-Sent Events response in order. Non-streaming
// responses are returned unchanged.
func CollapseStream(resp *httpclient.Response) []byte {
	if !isEventStream(resp.Headers.Get("Content-Type")) {
		return resp.Body
	}

	stream := sse.NewStream(io.NopCloser(bytes.NewReader(resp.Body)))
	defer stream.Close()

	var combined strings.Builder

	for {
		event, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return resp.Body
			}

			break
		}

		combined.WriteString(event.Data)
	}

	return []byte(combined.String())
}

func isEventStream(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/event-stream")
}

func canaryPayload(modality Modality) Payload {
	switch modality {
	case ModalityImage:
		return Payload{Kind: PayloadImage, Prompt: CanaryPrompt, ImageB64: tinyJPEGBase64}
	case ModalityAudio:
		return Payload{Kind: PayloadAudio, Prompt: CanaryPrompt, AudioB64: tinyWAVBase64}
	case ModalityFiles:
		return Payload{Kind: PayloadFiles, Prompt: CanaryPrompt, Files: map[string][]byte{"file": []byte("canary")}}
	default:
		return Payload{Kind: PayloadText, Prompt: CanaryPrompt}
	}
}

func preview(body []byte, max int) string {
	if len(body) <= max {
		return string(body)
	}

	return string(body[:max])
}
