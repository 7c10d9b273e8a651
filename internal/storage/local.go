package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalStore keeps uploaded photos on local disk under a media root,
// namespaced per user as user_<ownerId>/<filename>. Paths handed to callers
// are relative to the root; Path resolves them to absolute paths for the
// inference pipeline.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &LocalStore{root: abs}, nil
}

// Save writes an uploaded file under the owner's directory and returns the
// stored path relative to the media root. A name collision is resolved by
// inserting a short random suffix before the extension, so the original
// filename stays recognizable.
func (s *LocalStore) Save(userID uuid.UUID, file *multipart.FileHeader) (string, error) {
	filename := filepath.Base(file.Filename)
	if filename == "" || filename == "." || filename == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename %q", file.Filename)
	}

	userDir := fmt.Sprintf("user_%s", userID)
	if err := os.MkdirAll(filepath.Join(s.root, userDir), 0o755); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}

	relPath := filepath.ToSlash(filepath.Join(userDir, filename))
	dst, err := s.createExclusive(filepath.Join(s.root, userDir, filename))
	if os.IsExist(err) {
		filename = disambiguate(filename)
		relPath = filepath.ToSlash(filepath.Join(userDir, filename))
		dst, err = s.createExclusive(filepath.Join(s.root, userDir, filename))
	}
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	src, err := file.Open()
	if err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer src.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return relPath, nil
}

// Path resolves a stored relative path to an absolute one, rejecting anything
// that would escape the media root.
func (s *LocalStore) Path(relPath string) (string, error) {
	abs := filepath.Join(s.root, filepath.FromSlash(relPath))
	if !strings.HasPrefix(abs, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes media root", relPath)
	}
	return abs, nil
}

// Remove deletes a stored file. A file that is already absent counts as
// removed.
func (s *LocalStore) Remove(relPath string) error {
	abs, err := s.Path(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

func disambiguate(filename string) string {
	ext := filepath.Ext(filename)
	stem := strings.TrimSuffix(filename, ext)
	suffix := uuid.New().String()[:8]
	return fmt.Sprintf("%s_%s%s", stem, suffix, ext)
}
