// Package chunks provides the per-document chunk viewer for the TUI.
package chunks

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// ErrNoDocumentService indicates that no document service was provided.
var ErrNoDocumentService = errors.New("document service is required")

// reserved is the height taken by the title, separator and help lines.
const reserved = 6

// View shows a document's chunks in a scrollable viewport. The chunk a
// search hit pointed at is marked and scrolled into view.
type View struct {
	styles          *styles.Styles
	documentService driving.DocumentService
	ctx             context.Context
	viewport        viewport.Model

	document *domain.Document
	chunks   []domain.Chunk
	focus    string
	back     messages.ViewType
	width    int
	height   int
	loading  bool
	err      error
}

// NewView creates a chunk view.
func NewView(s *styles.Styles, documentService driving.DocumentService) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	return &View{
		styles:          s,
		documentService: documentService,
		ctx:             context.Background(),
		viewport:        viewport.New(80, 24-reserved),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context loads run under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Open loads a document's chunks. back is the view esc returns to.
func (v *View) Open(sel messages.DocumentSelected, back messages.ViewType) tea.Cmd {
	v.document = nil
	v.chunks = nil
	v.focus = sel.ChunkID
	v.back = back
	v.err = nil
	v.loading = true
	v.viewport.SetContent("")
	v.viewport.GotoTop()

	ctx, svc, id := v.ctx, v.documentService, sel.DocumentID
	return func() tea.Msg {
		if svc == nil {
			return messages.ChunksLoaded{Err: ErrNoDocumentService}
		}
		doc, err := svc.Get(ctx, id)
		if err != nil {
			return messages.ChunksLoaded{Err: err}
		}
		chunks, err := svc.GetChunks(ctx, id)
		return messages.ChunksLoaded{Document: doc, Chunks: chunks, Err: err}
	}
}

// Update handles messages for the chunk view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.ChunksLoaded:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.document = msg.Document
			v.chunks = msg.Chunks
			v.render()
		}
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			back := v.back
			return v, func() tea.Msg { return messages.ViewChanged{View: back} }
		case "g", "home":
			v.viewport.GotoTop()
			return v, nil
		case "G", "end":
			v.viewport.GotoBottom()
			return v, nil
		}
	}

	var cmd tea.Cmd
	v.viewport, cmd = v.viewport.Update(msg)
	return v, cmd
}

// render fills the viewport and scrolls to the focused chunk.
func (v *View) render() {
	width := max(v.width-4, 20)
	wrap := lipgloss.NewStyle().Width(width)

	var b strings.Builder
	focusLine := 0
	for i, c := range v.chunks {
		if c.ID == v.focus && v.focus != "" {
			focusLine = strings.Count(b.String(), "\n")
		}

		header := fmt.Sprintf("Chunk %d · %d tokens", c.Position+1, c.Tokens)
		if c.SentenceCount > 0 {
			header += fmt.Sprintf(" · %d sentences", c.SentenceCount)
		}
		if c.ID == v.focus {
			b.WriteString(v.styles.Selected.Render("> " + header))
		} else {
			b.WriteString(v.styles.Subtitle.Render(header))
		}
		if c.Oversized {
			b.WriteString(" " + v.styles.Oversized.Render("oversized"))
		}
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render(wrap.Render(c.Content)))
		if i < len(v.chunks)-1 {
			b.WriteString("\n\n")
		}
	}

	v.viewport.SetContent(b.String())
	v.viewport.SetYOffset(focusLine)
}

// View renders the chunk view.
func (v *View) View() string {
	var b strings.Builder

	title := "Document"
	if v.document != nil {
		title = v.document.Title
		if title == "" {
			title = v.document.URI
		}
	}
	b.WriteString(v.styles.Title.Render(title))
	b.WriteString("\n")
	if v.document != nil {
		b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s · %s · %d chunks",
			v.document.URI, v.document.Modality.OrDefault(), len(v.chunks))))
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(max(v.width-4, 1), 60)))
	b.WriteString("\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading chunks..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.chunks) == 0:
		b.WriteString(v.styles.Muted.Render("(No chunks)"))
	default:
		b.WriteString(v.viewport.View())
	}

	b.WriteString("\n")
	help := "[↑/↓/PgUp/PgDn] scroll  [g/G] top/bottom  [esc] back"
	if len(v.chunks) > 0 {
		help = fmt.Sprintf("%3.0f%%  %s", v.viewport.ScrollPercent()*100, help)
	}
	b.WriteString(v.styles.Help.Render(help))
	return b.String()
}

// SetDimensions resizes the view and its viewport.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.viewport.Width = width
	v.viewport.Height = max(height-reserved, 1)
	if len(v.chunks) > 0 {
		v.render()
	}
}

// Document returns the open document.
func (v *View) Document() *domain.Document {
	return v.document
}

// Chunks returns the open document's chunks.
func (v *View) Chunks() []domain.Chunk {
	return v.chunks
}

// YOffset returns the viewport scroll offset.
func (v *View) YOffset() int {
	return v.viewport.YOffset
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
