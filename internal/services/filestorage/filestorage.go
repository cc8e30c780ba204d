package filestorage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cozy-creator/brandgen/internal/config"
	"github.com/cozy-creator/brandgen/internal/utils/hashutil"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrEmptyFile    = errors.New("file has no content")
	ErrFileNotFound = errors.New("file not found")
)

type FileInfo struct {
	Name      string
	Extension string
	Content   []byte
	IsTemp    bool
}

type FileStorage interface {
	Upload(ctx context.Context, file FileInfo) (string, error)
	GetFile(ctx context.Context, filename string) (*FileInfo, error)
}

// NewFileInfo names content by its blake3 digest and picks the extension
// from the detected MIME type, so identical images share one object.
func NewFileInfo(content []byte, isTemp bool) (FileInfo, error) {
	if len(content) == 0 {
		return FileInfo{}, ErrEmptyFile
	}

	return FileInfo{
		Name:      hashutil.Blake3Hash(content),
		Extension: mimetype.Detect(content).Extension(),
		Content:   content,
		IsTemp:    isTemp,
	}, nil
}

func (f FileInfo) Filename() string {
	return f.Name + f.Extension
}

func NewFileStorage(cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.FilesystemType) {
	case config.FilesystemLocal, "":
		return NewLocalFileStorage(cfg)
	case config.FilesystemS3:
		return NewS3FileStorage(context.Background(), cfg)
	}

	return nil, fmt.Errorf("invalid filesystem type %s", cfg.FilesystemType)
}
