package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// stubNormaliser records its name in the document title.
type stubNormaliser struct {
	name     string
	types    []string
	priority int
}

func (s *stubNormaliser) SupportedMIMETypes() []string { return s.types }
func (s *stubNormaliser) Priority() int                { return s.priority }

func (s *stubNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	return &domain.Document{URI: raw.URI, Title: s.name}, nil
}

func TestRegistry_PicksHighestPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "fallback", types: []string{Wildcard}, priority: 5})
	r.Register(&stubNormaliser{name: "low", types: []string{"text/markdown"}, priority: 10})
	r.Register(&stubNormaliser{name: "high", types: []string{"text/markdown"}, priority: 50})

	tests := []struct {
		mimeType string
		want     string
	}{
		{"text/markdown", "high"},
		{"Text/Markdown; charset=utf-8", "high"},
		{"application/x-unknown", "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			doc, err := r.Normalise(context.Background(), &domain.RawDocument{URI: "u", MIMEType: tt.mimeType})

			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Title)
		})
	}
}

func TestRegistry_WildcardOutranksLowPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "weak", types: []string{"text/plain"}, priority: 1})
	r.Register(&stubNormaliser{name: "any", types: []string{Wildcard}, priority: 5})

	doc, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "text/plain"})

	require.NoError(t, err)
	assert.Equal(t, "any", doc.Title)
}

func TestRegistry_Unsupported(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubNormaliser{name: "md", types: []string{"text/markdown"}, priority: 50})

	_, err := r.Normalise(context.Background(), &domain.RawDocument{MIMEType: "image/png"})

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	assert.False(t, r.Supports("image/png"))
	assert.True(t, r.Supports("text/markdown"))
}

func TestRegistry_Nil(t *testing.T) {
	_, err := NewRegistry().Normalise(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	types := r.SupportedMIMETypes()
	assert.Contains(t, types, "text/markdown")
	assert.Contains(t, types, "text/html")
	assert.Contains(t, types, "image/png")
	assert.Contains(t, types, "message/rfc822")
	assert.Contains(t, types, "application/pdf")
	assert.Contains(t, types, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
	assert.NotContains(t, types, Wildcard)
	assert.IsIncreasing(t, types)

	tests := []struct {
		mimeType string
		content  string
		modality domain.Modality
		format   any
	}{
		{"text/markdown", "# Title\n\nBody.", domain.ModalityText, "markdown"},
		{"text/html", "<p>Body.</p>", domain.ModalityText, "html"},
		{"message/rfc822", "Subject: Hi\n\nBody.", domain.ModalityText, "eml"},
		{"text/x-go", "package main", domain.ModalityText, nil},
		{"application/octet-stream", "bytes", domain.ModalityText, nil},
		{"image/png", "\x89PNG", domain.ModalityImage, nil},
	}
	for _, tt := range tests {
		t.Run(tt.mimeType, func(t *testing.T) {
			raw := &domain.RawDocument{URI: "/x/file_name", MIMEType: tt.mimeType, Content: []byte(tt.content)}

			doc, err := r.Normalise(context.Background(), raw)

			require.NoError(t, err)
			assert.Equal(t, tt.modality, doc.Modality)
			assert.Equal(t, tt.format, doc.Metadata["format"])
		})
	}
}
