package keymap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_Bindings(t *testing.T) {
	km := DefaultKeyMap()
	require.NotNil(t, km)

	tests := []struct {
		name    string
		keys    []string
		binding []string
	}{
		{"quit", []string{"q", "ctrl+c"}, km.Quit.Keys()},
		{"help", []string{"?"}, km.Help.Keys()},
		{"back", []string{"esc"}, km.Back.Keys()},
		{"up", []string{"up", "k"}, km.Up.Keys()},
		{"down", []string{"down", "j"}, km.Down.Keys()},
		{"open", []string{"enter"}, km.Open.Keys()},
		{"modality", []string{"m"}, km.Modality.Keys()},
		{"switch view", []string{"tab"}, km.SwitchView.Keys()},
		{"new search", []string{"n", "/"}, km.NewSearch.Keys()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.keys, tt.binding)
		})
	}
}

func TestKeyMap_Help(t *testing.T) {
	km := DefaultKeyMap()

	assert.Len(t, km.ShortHelp(), 3)
	assert.Contains(t, km.ResultsHelp(), km.Modality)
	assert.Len(t, km.FullHelp(), 4)
}

func TestMatches(t *testing.T) {
	km := DefaultKeyMap()

	assert.True(t, Matches("j", km.Down))
	assert.True(t, Matches("/", km.NewSearch))
	assert.False(t, Matches("x", km.Down))
}
