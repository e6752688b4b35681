package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MimeTypes maps file extensions to the mime types accepted for reference and
// generated images.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
	".gif":  "image/gif",
}

// FileStore persists image blobs and thought-signature side-channel files on
// the local filesystem under a single root. Generated artifacts land in
// uploads/, art form reference assets are read from assets/. Keys are cleaned
// to prevent directory traversal.
type FileStore struct {
	basePath string
}

// NewFileStore initializes a FileStore rooted at basePath and ensures the
// uploads directory exists.
func NewFileStore(basePath string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if err := os.MkdirAll(filepath.Join(basePath, "uploads"), 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure uploads dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	return s.basePath
}

// Write persists data at the given relative key and returns the canonicalized
// storage key.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return cleanKey, nil
}

// Read returns the bytes stored at key.
func (s *FileStore) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", cleanKey, err)
	}
	return data, nil
}

// Exists reports whether a blob is present at key.
func (s *FileStore) Exists(key string) bool {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false
	}
	_, err = os.Stat(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	return err == nil
}

// Remove deletes the blob at key. Missing files are not an error so the
// expiry sweeper can retry safely.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(cleanKey))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: remove %s: %w", cleanKey, err)
	}
	return nil
}

// SaveImage stores generated image bytes under a fresh unique name and
// returns the storage key.
func (s *FileStore) SaveImage(ctx context.Context, data []byte, mimeType string) (string, error) {
	ext := ".jpg"
	if strings.Contains(mimeType, "png") {
		ext = ".png"
	}
	key := fmt.Sprintf("uploads/generated_%s%s", uuid.NewString(), ext)
	return s.Write(ctx, key, data)
}

// SaveUpload stores a user-supplied reference image under a unique name that
// keeps the original extension.
func (s *FileStore) SaveUpload(ctx context.Context, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := MimeTypes[ext]; !ok {
		return "", errors.New("storage: unsupported image extension")
	}
	key := fmt.Sprintf("uploads/%s%s", uuid.NewString(), ext)
	return s.Write(ctx, key, data)
}

// SaveSignature persists a thought signature alongside the image it belongs
// to and returns the storage key.
func (s *FileStore) SaveSignature(ctx context.Context, signature string) (string, error) {
	key := fmt.Sprintf("uploads/signature_%s.txt", uuid.NewString())
	return s.Write(ctx, key, []byte(signature))
}

// ReadSignature loads a previously stored thought signature.
func (s *FileStore) ReadSignature(ctx context.Context, key string) (string, error) {
	data, err := s.Read(ctx, key)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// MimeForPath derives the mime type from a storage key's extension,
// defaulting to image/jpeg.
func MimeForPath(path string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mime
	}
	return "image/jpeg"
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
