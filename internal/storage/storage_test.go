package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"a.txt", "Report 2024.pdf", "..hidden", "ümlaut.docx", ".upload-notes.txt", ".tmp"} {
		assert.NoError(t, ValidateKey(key), key)
	}
	for _, key := range []string{"", ".", "..", "x/y", `x\y`, "a\x00b", ReservedKey} {
		assert.ErrorIs(t, ValidateKey(key), ErrInvalidKey, key)
	}
}
