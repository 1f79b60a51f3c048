package attachment

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultMaxSize bounds the attachments read from disk.
const DefaultMaxSize = 10 << 20

var (
	ErrUnsupportedType = errors.New("only JPEG and PNG images are accepted")
	ErrTooLarge        = errors.New("attachment is too large")
	ErrEmpty           = errors.New("attachment is empty")
)

var allowed = []string{"image/jpeg", "image/png"}

// Detect sniffs data and returns its type if it is an accepted image.
func Detect(data []byte) (*mimetype.MIME, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowed...) {
		return nil, fmt.Errorf("%s: %w", mt.String(), ErrUnsupportedType)
	}
	return mt, nil
}

// ReadFile loads an image from path. A maxSize of zero means DefaultMaxSize.
func ReadFile(path string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, ErrTooLarge
	}
	if _, err := Detect(data); err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFile stores data in dir as base plus the extension matching its type
// and returns the path written.
func WriteFile(dir, base string, data []byte) (string, error) {
	mt, err := Detect(data)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dir, err)
	}
	path := filepath.Join(dir, base+mt.Extension())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write attachment: %w", err)
	}
	return path, nil
}
