// Package eml turns RFC 5322 messages into searchable documents.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
)

// maxDepth bounds nested multipart recursion.
const maxDepth = 8

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise parses the message and builds a header block followed by the
// body. Plain text parts win over HTML; attachments are skipped.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("eml %s: %w: %v", raw.URI, domain.ErrInvalidInput, err)
	}

	headers := map[string]string{
		"from":    decodeHeader(msg.Header.Get("From")),
		"to":      decodeHeader(msg.Header.Get("To")),
		"subject": decodeHeader(msg.Header.Get("Subject")),
		"date":    msg.Header.Get("Date"),
	}

	body, err := readBody(headerOf(msg.Header), msg.Body, 0)
	if err != nil {
		return nil, fmt.Errorf("eml %s: %w: %v", raw.URI, domain.ErrInvalidInput, err)
	}

	var content strings.Builder
	for _, field := range []string{"from", "to", "date", "subject"} {
		if v := headers[field]; v != "" {
			fmt.Fprintf(&content, "%s: %s\n", strings.ToUpper(field[:1])+field[1:], v)
		}
	}
	content.WriteString("\n")
	content.WriteString(body)

	title := headers["subject"]
	if title == "" {
		name := filepath.Base(raw.URI)
		name = strings.TrimSuffix(name, filepath.Ext(name))
		title = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	}

	doc := &domain.Document{
		URI:      raw.URI,
		Title:    title,
		Modality: domain.ModalityText,
		Content:  strings.TrimSpace(content.String()),
		Metadata: domain.CloneMetadata(raw.Metadata),
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["format"] = "eml"
	for _, field := range []string{"from", "to"} {
		if v := headers[field]; v != "" {
			doc.Metadata[field] = v
		}
	}
	if date := headers["date"]; date != "" {
		if t, err := mail.ParseDate(date); err == nil {
			doc.Metadata["date"] = t.UTC().Format(time.RFC3339)
		} else {
			doc.Metadata["date"] = date
		}
	}
	if id := strings.Trim(msg.Header.Get("Message-Id"), "<> "); id != "" {
		doc.Metadata["message_id"] = id
	}

	return doc, nil
}

// partHeader is the subset of a MIME header the body reader needs.
type partHeader struct {
	contentType string
	encoding    string
	disposition string
}

func headerOf(h interface{ Get(string) string }) partHeader {
	return partHeader{
		contentType: h.Get("Content-Type"),
		encoding:    h.Get("Content-Transfer-Encoding"),
		disposition: h.Get("Content-Disposition"),
	}
}

// readBody extracts the readable text of one entity. Unknown media types
// yield no text.
func readBody(h partHeader, r io.Reader, depth int) (string, error) {
	mediaType, params, err := mime.ParseMediaType(h.contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		if depth >= maxDepth || params["boundary"] == "" {
			return "", nil
		}
		return readMultipart(multipart.NewReader(r, params["boundary"]), depth+1), nil
	}

	data, err := io.ReadAll(decode(r, h.encoding))
	if err != nil {
		return "", err
	}
	switch mediaType {
	case "text/html":
		return html.StripMarkup(string(data)), nil
	case "text/plain":
		return strings.TrimSpace(strings.ToValidUTF8(string(data), "")), nil
	default:
		return "", nil
	}
}

// readMultipart keeps what it could read before a malformed part.
func readMultipart(mr *multipart.Reader, depth int) string {
	var plain, rich []string
	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		h := headerOf(part.Header)
		if strings.HasPrefix(strings.ToLower(h.disposition), "attachment") {
			continue
		}
		if h.contentType == "" {
			h.contentType = "text/plain"
		}

		text, err := readBody(h, part, depth)
		if err != nil || text == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(h.contentType), "text/html") {
			rich = append(rich, text)
		} else {
			plain = append(plain, text)
		}
	}

	if len(plain) > 0 {
		return strings.Join(plain, "\n\n")
	}
	return strings.Join(rich, "\n\n")
}

func decode(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// decodeHeader decodes RFC 2047 encoded words, keeping the input on failure.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}
