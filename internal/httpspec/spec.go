// Package httpspec parses and materializes the HTTP-spec blueprint format
// described as a plain-text request-line/headers/body
// template with <<PROMPT>>, <<BASE64_IMAGE>>, <<BASE64_AUDIO>> placeholders.
package httpspec

import "strings"

// Modality is the single placeholder channel a Spec exercises.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
	ModalityFiles Modality = "files"
)

const (
	PlaceholderPrompt = "<<PROMPT>>"
	PlaceholderImage  = "<<BASE64_IMAGE>>"
	PlaceholderAudio  = "<<BASE64_AUDIO>>"
)

// HeaderField preserves header casing and declaration order, which a
// plain http.Header map cannot.
type HeaderField struct {
	Name  string
	Value string
}

// Spec is a parsed HTTP-spec blueprint.
type Spec struct {
	Method      string
	URL         string
	Headers     []HeaderField
	ContentType string
	Body        []byte
	Modality    Modality
}

var httpMethods = map[string]bool{
	"GET": true, "HEAD": true, "POST": true, "PUT": true,
	"PATCH": true, "DELETE": true, "OPTIONS": true, "CONNECT": true, "TRACE": true,
}

func headerValue(headers []HeaderField, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}

	return ""
}

func setHeader(headers *[]HeaderField, name, value string) {
	for i, h := range *headers {
		if strings.EqualFold(h.Name, name) {
			(*headers)[i].Value = value
			return
		}
	}

	*headers = append(*headers, HeaderField{Name: name, Value: value})
}

func cloneHeaders(headers []HeaderField) []HeaderField {
	out := make([]HeaderField, len(headers))
	copy(out, headers)

	return out
}

func detectModality(contentType string, body string) Modality {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "multipart/") {
		return ModalityFiles
	}

	if strings.Contains(body, PlaceholderImage) {
		return ModalityImage
	}

	if strings.Contains(body, PlaceholderAudio) {
		return ModalityAudio
	}

	return ModalityText
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/json")
}
