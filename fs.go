package upatch

import (
	"bytes"
	"compress/zlib"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// GetFileSHA256 returns the hex digest of a file's content, or "" and
// os.ErrNotExist when there is no such file.
func GetFileSHA256(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}

// storeFileBlob saves the content of path as a blob and returns its hash.
// A missing file yields an empty hash.
func storeFileBlob(dir, path string) (string, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	h := hex.EncodeToString(sum[:])
	if err := WriteBlob(dir, h, content); err != nil {
		return "", fmt.Errorf("store blob for %s: %w", path, err)
	}
	return h, nil
}

func WriteBlob(dir string, hash string, content []byte) error {
	blobDir := filepath.Join(dir, BlobsDir)
	if err := os.MkdirAll(blobDir, 0755); err != nil {
		return err
	}

	blobPath := filepath.Join(blobDir, hash)
	if _, err := os.Stat(blobPath); err == nil {
		return nil
	}

	var b bytes.Buffer
	w := zlib.NewWriter(&b)
	if _, err := w.Write(content); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	return os.WriteFile(blobPath, b.Bytes(), 0644)
}

func ReadBlob(dir string, hash string) ([]byte, error) {
	if hash == "" {
		return []byte{}, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, BlobsDir, hash))
	if err != nil {
		return nil, err
	}

	if !isZlibCompressed(data) {
		return data, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return data, nil
	}
	defer r.Close()

	return io.ReadAll(r)
}

func isZlibCompressed(data []byte) bool {
	return len(data) > 2 && data[0] == 0x78
}

// writeFilePreservingMode replaces path with content, keeping the mode of an
// existing file.
func writeFilePreservingMode(path string, content []byte) error {
	mode := os.FileMode(0644)
	if fi, err := os.Stat(path); err == nil {
		mode = fi.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, content, mode)
}
