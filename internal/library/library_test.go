package library

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sagar/internal/assistant"
)

const songsYAML = `
Despacito: https://www.youtube.com/watch?v=kJQP7kiw5Fk
"Shape of  You": https://www.youtube.com/watch?v=JGwWNGJdvx8
empty: ""
`

func TestParse_LookupIsCaseInsensitive(t *testing.T) {
	lib, err := Parse([]byte(songsYAML))
	require.NoError(t, err)

	url, ok := lib.Lookup("despacito")
	assert.True(t, ok)
	assert.Equal(t, "https://www.youtube.com/watch?v=kJQP7kiw5Fk", url)

	url, ok = lib.Lookup("SHAPE OF YOU")
	assert.True(t, ok)
	assert.Equal(t, "https://www.youtube.com/watch?v=JGwWNGJdvx8", url)

	_, ok = lib.Lookup("bohemian rhapsody")
	assert.False(t, ok)

	assert.Equal(t, 2, lib.Len())
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("- just\n- a list\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(songsYAML), 0o600))

	lib, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lib.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "songs.yaml"))
	assert.ErrorIs(t, err, assistant.ErrNotInstalled)
}
