package corpus

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(nil, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestPickReturnsOneBasedIDs(t *testing.T) {
	c, err := New([]string{"alpha beta", "gamma delta"}, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	seen := make(map[int]string)
	for i := 0; i < 100; i++ {
		id, sentence := c.Pick()
		require.GreaterOrEqual(t, id, 1)
		require.LessOrEqual(t, id, 2)
		seen[id] = sentence
	}
	assert.Equal(t, "alpha beta", seen[1])
	assert.Equal(t, "gamma delta", seen[2])
}

func TestLoadSkipsBlankAndComments(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sentences.txt")
	content := "# corpus\n\nthe quick brown fox\n  \npack my box\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	c, err := Load(path, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.txt"), rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestDefaultNotEmpty(t *testing.T) {
	c := Default(rand.New(rand.NewSource(1)))
	assert.Greater(t, c.Len(), 0)
}
