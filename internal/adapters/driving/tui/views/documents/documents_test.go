package documents

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// mockDocumentService serves a fixed document list.
type mockDocumentService struct {
	docs []domain.Document
	err  error
}

func (m *mockDocumentService) List(context.Context) ([]domain.Document, error) {
	return m.docs, m.err
}

func (m *mockDocumentService) Get(context.Context, string) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetChunks(context.Context, string) ([]domain.Chunk, error) {
	return nil, nil
}

func (m *mockDocumentService) GetContent(context.Context, string) (string, error) {
	return "", nil
}

func (m *mockDocumentService) GetDetails(context.Context, string) (*driving.DocumentDetails, error) {
	return nil, domain.ErrNotFound
}

func testDocs() []domain.Document {
	return []domain.Document{
		{ID: "a", Title: "Bread", URI: "/notes/bread.md"},
		{ID: "b", Title: "Loaf photo", URI: "/photos/loaf.png", Modality: domain.ModalityImage},
		{ID: "c", URI: "/notes/untitled.txt"},
	}
}

func load(t *testing.T, v *View) {
	t.Helper()
	cmd := v.Init()
	require.NotNil(t, cmd)
	v.Update(cmd())
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestView_Load(t *testing.T) {
	v := NewView(nil, &mockDocumentService{docs: testDocs()})
	v.SetDimensions(120, 30)

	load(t, v)

	require.Len(t, v.Documents(), 3)
	view := v.View()
	assert.Contains(t, view, "Documents (3)")
	assert.Contains(t, view, "Bread")
	assert.Contains(t, view, "image")
	assert.Contains(t, view, "(Untitled)")
	assert.Contains(t, view, "/notes/untitled.txt")
}

func TestView_LoadingAndEmpty(t *testing.T) {
	v := NewView(nil, &mockDocumentService{})

	cmd := v.Init()
	assert.Contains(t, v.View(), "Loading documents...")

	v.Update(cmd())
	assert.Contains(t, v.View(), "Nothing indexed yet")
}

func TestView_LoadError(t *testing.T) {
	v := NewView(nil, &mockDocumentService{err: errors.New("db locked")})

	load(t, v)

	assert.EqualError(t, v.Err(), "db locked")
	assert.Contains(t, v.View(), "Error: db locked")
}

func TestView_NoService(t *testing.T) {
	v := NewView(nil, nil)

	load(t, v)

	assert.ErrorIs(t, v.Err(), ErrNoDocumentService)
}

func TestView_NavigateAndSelect(t *testing.T) {
	v := NewView(nil, &mockDocumentService{docs: testDocs()})
	load(t, v)

	v.Update(key("j"))
	v.Update(key("j"))
	v.Update(key("j"))
	require.NotNil(t, v.SelectedDocument())
	assert.Equal(t, "c", v.SelectedDocument().ID)

	v.Update(key("g"))
	assert.Equal(t, "a", v.SelectedDocument().ID)
	v.Update(key("G"))
	assert.Equal(t, "c", v.SelectedDocument().ID)
	v.Update(key("k"))

	_, cmd := v.Update(key("enter"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.DocumentSelected{DocumentID: "b"}, cmd())
}

func TestView_EnterWithoutDocuments(t *testing.T) {
	v := NewView(nil, &mockDocumentService{})
	load(t, v)

	_, cmd := v.Update(key("enter"))

	assert.Nil(t, cmd)
	assert.Nil(t, v.SelectedDocument())
}

func TestView_EscapeAndReload(t *testing.T) {
	svc := &mockDocumentService{docs: testDocs()[:1]}
	v := NewView(nil, svc)
	load(t, v)

	_, cmd := v.Update(key("esc"))
	require.NotNil(t, cmd)
	assert.Equal(t, messages.ViewChanged{View: messages.ViewSearch}, cmd())

	svc.docs = testDocs()
	_, cmd = v.Update(key("r"))
	require.NotNil(t, cmd)
	v.Update(cmd())
	assert.Len(t, v.Documents(), 3)
}

func TestView_ReloadClampsSelection(t *testing.T) {
	svc := &mockDocumentService{docs: testDocs()}
	v := NewView(nil, svc)
	load(t, v)
	v.Update(key("G"))

	svc.docs = testDocs()[:1]
	load(t, v)

	assert.Equal(t, "a", v.SelectedDocument().ID)
}
