package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	s, err := LoadSet("")
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestLoadOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "apology.txt"), []byte("  sorry  \n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "voice.directive.txt"), []byte("\n\n"), 0o600))

	s, err := LoadSet(dir)
	require.NoError(t, err)
	assert.Equal(t, "sorry", s.Apology)
	assert.Equal(t, DefaultDirective, s.Directive)
	assert.Equal(t, DefaultSystem, s.System)
}

func TestLoadUnknown(t *testing.T) {
	_, err := Load("", "nope")
	assert.Error(t, err)
}
