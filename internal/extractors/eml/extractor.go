// Package eml extracts RFC 822 email messages, including multipart
// bodies, preferring plain text parts over HTML.
package eml

import (
	"bytes"
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"

	"github.com/korpora-labs/korpus-cli/internal/core/domain"
	"github.com/korpora-labs/korpus-cli/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles EML (email) documents.
type Extractor struct{}

// New creates a new EML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"message/rfc822",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract parses the email and produces searchable text with the
// headers inlined, plus normalized header fields in the metadata.
func (e *Extractor) Extract(_ context.Context, src *domain.SourceDocument) (*driven.ExtractResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(src.Content))
	if err != nil {
		return nil, domain.ErrInvalidInput
	}

	subject := decodeHeader(msg.Header.Get("Subject"))
	from := decodeHeader(msg.Header.Get("From"))
	to := decodeHeader(msg.Header.Get("To"))
	cc := decodeHeader(msg.Header.Get("Cc"))
	date := msg.Header.Get("Date")
	messageID := strings.Trim(msg.Header.Get("Message-Id"), "<>")

	body, err := extractBody(msg)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	writeHeader := func(name, value string) {
		if value != "" {
			content.WriteString(name)
			content.WriteString(": ")
			content.WriteString(value)
			content.WriteString("\n")
		}
	}
	writeHeader("From", from)
	writeHeader("To", to)
	writeHeader("Cc", cc)
	writeHeader("Date", date)
	writeHeader("Subject", subject)
	content.WriteString("\n")
	content.WriteString(body)

	metadata := map[string]any{
		"extraction_method": "eml",
		"subject":           subject,
		"sender":            from,
		"receiver":          to,
		"cc":                cc,
		"date":              date,
	}
	if messageID != "" {
		metadata["message_id"] = messageID
	}

	return &driven.ExtractResult{
		Text:     strings.TrimSpace(content.String()),
		Metadata: metadata,
	}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header // Return original if decoding fails
	}
	return decoded
}

// extractBody extracts the text content from an email message.
func extractBody(msg *mail.Message) (string, error) {
	contentType := msg.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// If we can't parse content type, try to read as plain text
		body, readErr := io.ReadAll(msg.Body)
		if readErr != nil {
			return "", domain.ErrInvalidInput
		}
		return string(body), nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipartBody(msg.Body, params["boundary"])
	}

	body, err := io.ReadAll(msg.Body)
	if err != nil {
		return "", domain.ErrInvalidInput
	}

	if mediaType == "text/html" {
		return stripHTMLTags(string(body)), nil
	}

	return string(body), nil
}

// extractMultipartBody extracts text from multipart messages.
func extractMultipartBody(r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts []string
	var htmlParts []string

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		partContentType := part.Header.Get("Content-Type")
		mediaType, params, parseErr := mime.ParseMediaType(partContentType)
		if parseErr != nil {
			mediaType = "application/octet-stream"
		}

		content, readErr := io.ReadAll(part)
		part.Close()
		if readErr != nil {
			continue
		}

		switch {
		case mediaType == "text/plain":
			textParts = append(textParts, string(content))
		case mediaType == "text/html":
			htmlParts = append(htmlParts, stripHTMLTags(string(content)))
		case strings.HasPrefix(mediaType, "multipart/"):
			// Recursively handle nested multipart
			nested, nestedErr := extractMultipartBody(bytes.NewReader(content), params["boundary"])
			if nestedErr == nil && nested != "" {
				textParts = append(textParts, nested)
			}
		}
	}

	// Prefer plain text over HTML
	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	if len(htmlParts) > 0 {
		return strings.Join(htmlParts, "\n"), nil
	}

	return "", nil
}

// stripHTMLTags removes HTML tags for basic text extraction.
func stripHTMLTags(html string) string {
	var result strings.Builder
	inTag := false

	for _, r := range html {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	// Clean up whitespace
	lines := strings.Split(result.String(), "\n")
	var cleaned []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return strings.Join(cleaned, "\n")
}
