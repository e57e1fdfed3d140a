package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage writes objects under a directory that the HTTP server exposes
// at baseURL. Meant for development.
type LocalStorage struct {
	root    string
	baseURL string
}

func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if root == "" {
		root = "./uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/")}, nil
}

// Root is the directory served at the base URL.
func (l *LocalStorage) Root() string {
	return l.root
}

func (l *LocalStorage) BaseURL() string {
	return l.baseURL
}

func (l *LocalStorage) Upload(ctx context.Context, content io.Reader, filename, contentType string) (string, error) {
	key := objectKey(filename)
	path := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return l.baseURL + "/" + key, nil
}

func (l *LocalStorage) Delete(ctx context.Context, url string) error {
	key, err := keyFromURL(l.baseURL, url)
	if err != nil {
		return err
	}
	if strings.Contains(key, "..") {
		return ErrForeignURL
	}
	return os.Remove(filepath.Join(l.root, filepath.FromSlash(key)))
}
