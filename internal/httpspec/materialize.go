package httpspec

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/msoedov/agentic-security/internal/httpclient"
)

// PayloadKind identifies which modality channel a Payload fills.
type PayloadKind string

const (
	PayloadText  PayloadKind = PayloadKind(ModalityText)
	PayloadImage PayloadKind = PayloadKind(ModalityImage)
	PayloadAudio PayloadKind = PayloadKind(ModalityAudio)
	PayloadFiles PayloadKind = PayloadKind(ModalityFiles)
)

// Payload carries the prompt in whichever shape the target modality needs.
type Payload struct {
	Kind PayloadKind

	// Prompt is substituted for <<PROMPT>>, and is also used as the
	// "prompt" form field for files-modality multipart bodies.
	Prompt string

	ImageB64 string
	AudioB64 string

	// Files maps form field name to file content, used only for the
	// files modality.
	Files map[string][]byte
}

// Materialize substitutes payload into spec's body (or builds a multipart
// body, for the files modality) and returns a ready-to-send request.
// It returns *ModalityError before building anything if payload.Kind does
// not match spec.Modality.
func Materialize(spec *Spec, payload Payload) (*httpclient.Request, error) {
	if payload.Kind != PayloadKind(spec.Modality) {
		return nil, &ModalityError{Expected: spec.Modality, Got: payload.Kind}
	}

	headers := cloneHeaders(spec.Headers)

	var (
		body []byte
		err  error
	)

	if spec.Modality == ModalityFiles {
		body, err = buildMultipart(payload, &headers)
	} else {
		body = substitutePlaceholders(spec.Body, spec.ContentType, payload)
	}

	if err != nil {
		return nil, err
	}

	if len(body) > 0 && headerValue(headers, "Content-Length") == "" {
		setHeader(&headers, "Content-Length", strconv.Itoa(len(body)))
	}

	return &httpclient.Request{
		Method:    spec.Method,
		URL:       spec.URL,
		Headers:   toHTTPHeader(headers),
		Body:      body,
		RequestID: uuid.NewString(),
	}, nil
}

func substitutePlaceholders(body []byte, contentType string, payload Payload) []byte {
	out := string(body)
	escape := stringEscaper(contentType)

	out = strings.ReplaceAll(out, PlaceholderPrompt, escape(payload.Prompt))
	out = strings.ReplaceAll(out, PlaceholderImage, escape(payload.ImageB64))
	out = strings.ReplaceAll(out, PlaceholderAudio, escape(payload.AudioB64))

	return []byte(out)
}

func stringEscaper(contentType string) func(string) string {
	if !isJSONContentType(contentType) {
		return func(s string) string { return s }
	}

	return jsonEscape
}

func jsonEscape(s string) string {
	b, err := json.Marshal(s)
	if err != nil || len(b) < 2 {
		return s
	}

	return string(b[1 : len(b)-1])
}

func buildMultipart(payload Payload, headers *[]HeaderField) ([]byte, error) {
	var buf bytes.Buffer

	w := multipart.NewWriter(&buf)

	if err := w.WriteField("prompt", payload.Prompt); err != nil {
		return nil, err
	}

	for name, content := range payload.Files {
		fw, err := w.CreateFormFile(name, name)
		if err != nil {
			return nil, err
		}

		if _, err := fw.Write(content); err != nil {
			return nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	setHeader(headers, "Content-Type", w.FormDataContentType())

	return buf.Bytes(), nil
}

func toHTTPHeader(headers []HeaderField) map[string][]string {
	h := make(map[string][]string, len(headers))
	for _, field := range headers {
		h[field.Name] = append(h[field.Name], field.Value)
	}

	return h
}
