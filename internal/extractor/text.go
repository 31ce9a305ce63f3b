package extractor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ExtractText returns the file contents verbatim, decoded to UTF-8.
func ExtractText(ctx context.Context, path string) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read text file: %w", err)
	}

	text, err := decodeText(data)
	if err != nil {
		return Result{}, fmt.Errorf("failed to decode text file: %w", err)
	}

	return Result{Text: text, Metadata: unknownMetadata()}, nil
}

// decodeText honours UTF-8 and UTF-16 byte order marks. Invalid UTF-8 without
// a BOM is read as Windows-1252.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		return string(data[3:]), nil
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}), bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		decoder := unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
		decoded, _, err := transform.Bytes(decoder, data)
		if err != nil {
			return "", err
		}
		return string(decoded), nil
	case utf8.Valid(data):
		return string(data), nil
	}

	decoded, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
