package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlobStorePutOpen(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 1024)
	require.NoError(t, err)

	info, err := store.Put("org-1/abc", strings.NewReader("hello evidence"))
	require.NoError(t, err)

	sum := sha256.Sum256([]byte("hello evidence"))
	assert.Equal(t, hex.EncodeToString(sum[:]), info.SHA256)
	assert.EqualValues(t, len("hello evidence"), info.Size)

	f, err := store.Open("org-1/abc")
	require.NoError(t, err)
	defer f.Close()
	body, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello evidence", string(body))
}

func TestBlobStoreRejectsOversize(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 4)
	require.NoError(t, err)

	_, err = store.Put("k", strings.NewReader("12345"))
	assert.ErrorIs(t, err, ErrTooLarge)

	_, err = store.Open("k")
	assert.Error(t, err)
}

func TestBlobStoreKeyValidation(t *testing.T) {
	store, err := NewBlobStore(t.TempDir(), 0)
	require.NoError(t, err)

	for _, key := range []string{"", "../escape", "/abs/path"} {
		_, err := store.Put(key, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrInvalidKey, key)
	}
	assert.NoError(t, store.Delete("missing"))
}
