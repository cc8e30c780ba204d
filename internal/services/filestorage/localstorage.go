package filestorage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cozy-creator/brandgen/internal/config"
)

// LocalFileStorage writes files under the assets (or temp) directory. The
// REST server exposes the assets directory at /file/.
type LocalFileStorage struct {
	assetsDir string
	tempDir   string
	baseURL   string
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	if cfg.AssetsDir == "" || cfg.TempDir == "" {
		return nil, fmt.Errorf("assets and temp directories must be set")
	}

	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}

	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		tempDir:   cfg.TempDir,
		baseURL:   "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port)) + "/file/",
	}, nil
}

func (s *LocalFileStorage) Upload(ctx context.Context, file FileInfo) (string, error) {
	if len(file.Content) == 0 {
		return "", ErrEmptyFile
	}

	dir := s.assetsDir
	if file.IsTemp {
		dir = s.tempDir
	}
	dest := filepath.Join(dir, file.Filename())

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(dest, file.Content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}

	if file.IsTemp {
		return "file://" + dest, nil
	}
	return s.baseURL + file.Filename(), nil
}

func (s *LocalFileStorage) GetFile(ctx context.Context, filename string) (*FileInfo, error) {
	clean := filepath.Base(filename)
	content, err := os.ReadFile(filepath.Join(s.assetsDir, clean))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, clean)
	}
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(clean)
	return &FileInfo{
		Name:      clean[:len(clean)-len(ext)],
		Extension: ext,
		Content:   content,
	}, nil
}
