// Package input provides the query input component for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/tui/styles"
)

// MaxQueryLength bounds the query input.
const MaxQueryLength = 512

// SearchInput wraps a bubbles textinput and shows the active modality
// filter next to the prompt.
type SearchInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	filter    string
	width     int
}

// NewSearchInput creates a focused query input.
func NewSearchInput(s *styles.Styles) *SearchInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask your documents..."
	ti.CharLimit = MaxQueryLength
	ti.Width = 50
	ti.Focus()

	return &SearchInput{
		textinput: ti,
		styles:    s,
		filter:    "all",
		width:     50,
	}
}

// Init starts the cursor blink.
func (s *SearchInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update forwards messages to the textinput.
func (s *SearchInput) Update(msg tea.Msg) (*SearchInput, tea.Cmd) {
	var cmd tea.Cmd
	s.textinput, cmd = s.textinput.Update(msg)
	return s, cmd
}

// View renders the prompt, the modality filter and the input box.
func (s *SearchInput) View() string {
	label := s.styles.Title.Render("Search ")
	filter := s.styles.Modality.Render("[" + s.filter + "] ")
	input := s.styles.InputField.Render(s.textinput.View())
	//nolint:misspell // lipgloss.Center is the correct constant from the library
	return lipgloss.JoinHorizontal(lipgloss.Center, label, filter, input)
}

// Value returns the current query.
func (s *SearchInput) Value() string {
	return s.textinput.Value()
}

// SetValue sets the query.
func (s *SearchInput) SetValue(value string) {
	s.textinput.SetValue(value)
}

// SetFilter sets the modality filter label.
func (s *SearchInput) SetFilter(label string) {
	s.filter = label
}

// Filter returns the modality filter label.
func (s *SearchInput) Filter() string {
	return s.filter
}

// Focus sets focus on the input.
func (s *SearchInput) Focus() tea.Cmd {
	return s.textinput.Focus()
}

// Blur removes focus from the input.
func (s *SearchInput) Blur() {
	s.textinput.Blur()
}

// Focused returns whether the input is focused.
func (s *SearchInput) Focused() bool {
	return s.textinput.Focused()
}

// SetWidth sets the width of the component; the box keeps at least 20 columns.
func (s *SearchInput) SetWidth(width int) {
	s.width = width
	s.textinput.Width = max(width-20, 20)
}

// Width returns the current width.
func (s *SearchInput) Width() int {
	return s.width
}

// Reset clears the query.
func (s *SearchInput) Reset() {
	s.textinput.Reset()
}
