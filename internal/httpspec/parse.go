package httpspec

import (
	"net/url"
	"strings"
)

// Parse reads a raw HTTP-spec blueprint: a request line,
// header lines, a blank-line separator, then the body. It fails with
// *SpecError when the request line is malformed, the method is unknown,
// the URL does not parse, or the blank-line separator is missing.
func Parse(blueprint string) (*Spec, error) {
	normalized := strings.ReplaceAll(blueprint, "\r\n", "\n")
	lines := strings.Split(normalized, "\n")

	if len(lines) == 0 || strings.TrimSpace(lines[0]) == "" {
		return nil, &SpecError{Reason: "empty blueprint"}
	}

	method, rawURL, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	headers, bodyStart, err := parseHeaders(lines[1:])
	if err != nil {
		return nil, err
	}

	body := strings.Join(lines[1+bodyStart:], "\n")
	contentType := headerValue(headers, "Content-Type")

	return &Spec{
		Method:      method,
		URL:         rawURL,
		Headers:     headers,
		ContentType: contentType,
		Body:        []byte(body),
		Modality:    detectModality(contentType, body),
	}, nil
}

func parseRequestLine(line string) (method string, rawURL string, err error) {
	parts := strings.SplitN(strings.TrimRight(line, " \t"), " ", 2)
	if len(parts) != 2 {
		return "", "", &SpecError{Reason: "request line must be \"METHOD URL\""}
	}

	method = strings.ToUpper(strings.TrimSpace(parts[0]))
	rawURL = strings.TrimSpace(parts[1])

	if !httpMethods[method] {
		return "", "", &SpecError{Reason: "unknown HTTP method " + method}
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", "", &SpecError{Reason: "invalid URL " + rawURL}
	}

	return method, rawURL, nil
}

// parseHeaders consumes header lines until (and including) the blank-line
// separator, returning the headers and the index of the line after the
// separator within the slice it was given.
func parseHeaders(lines []string) (headers []HeaderField, bodyStart int, err error) {
	for i, line := range lines {
		if line == "" {
			return headers, i + 1, nil
		}

		idx := strings.Index(line, ":")
		if idx < 0 {
			return nil, 0, &SpecError{Reason: "malformed header line: " + line}
		}

		name := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		headers = append(headers, HeaderField{Name: name, Value: value})
	}

	return nil, 0, &SpecError{Reason: "missing blank line separating headers from body"}
}

// Print renders spec back to blueprint text. Round-tripping through
// Parse(Print(spec)) reproduces spec up to header-value whitespace
// trimming, and the result always ends in a newline: a non-empty body
// without one gets exactly one appended, and an empty body leaves the
// blank separator line as the end of the text.
func Print(spec *Spec) string {
	var b strings.Builder

	b.WriteString(spec.Method)
	b.WriteString(" ")
	b.WriteString(spec.URL)
	b.WriteString("\n")

	for _, h := range spec.Headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.Write(spec.Body)

	if len(spec.Body) > 0 && spec.Body[len(spec.Body)-1] != '\n' {
		b.WriteString("\n")
	}

	return b.String()
}
