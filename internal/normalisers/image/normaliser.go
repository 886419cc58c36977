// Package image provides a Normaliser for image files. Pixels are not
// decoded: an image document carries a caption as its content, which the
// image embedder maps into the image vector space.
package image

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Metadata keys read for the caption, in order of preference.
var captionKeys = []string{"caption", "alt", "description"}

// Normaliser turns image files into image-modality documents.
type Normaliser struct{}

// New creates a new image normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"image/png", "image/jpeg", "image/gif", "image/webp", "image/svg+xml"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 60
}

// Normalise builds an image document. The caption comes from metadata when
// the caller supplied one, otherwise from the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	name := filepath.Base(raw.URI)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	title = strings.NewReplacer("_", " ", "-", " ").Replace(title)

	caption := title
	for _, key := range captionKeys {
		if v, ok := raw.Metadata[key].(string); ok && strings.TrimSpace(v) != "" {
			caption = strings.TrimSpace(v)
			break
		}
	}
	if strings.TrimSpace(caption) == "" {
		return nil, fmt.Errorf("image %s: %w: no caption", raw.URI, domain.ErrInvalidInput)
	}

	doc := &domain.Document{
		URI:      raw.URI,
		Title:    title,
		Modality: domain.ModalityImage,
		Content:  caption,
		Metadata: domain.CloneMetadata(raw.Metadata),
	}
	if doc.Metadata == nil {
		doc.Metadata = make(map[string]any)
	}
	doc.Metadata["mime_type"] = raw.MIMEType
	doc.Metadata["size_bytes"] = len(raw.Content)

	return doc, nil
}
