package fileuploader

import (
	"context"
	"fmt"

	"github.com/cozy-creator/brandgen/internal/services/filestorage"

	"github.com/gammazero/workerpool"
)

type result struct {
	index int
	url   string
	err   error
}

// Uploader pushes generated image bytes to file storage on a bounded pool.
type Uploader struct {
	wp          *workerpool.WorkerPool
	filestorage filestorage.FileStorage
}

func NewFileUploader(storage filestorage.FileStorage, maxWorkers int) *Uploader {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}

	return &Uploader{
		wp:          workerpool.New(maxWorkers),
		filestorage: storage,
	}
}

func (u *Uploader) Stop() {
	u.wp.StopWait()
}

// UploadAll uploads every image concurrently and returns their URLs in
// input order. The first failure is returned after all uploads settle.
func (u *Uploader) UploadAll(ctx context.Context, images [][]byte) ([]string, error) {
	if u.filestorage == nil {
		return nil, fmt.Errorf("file storage is not configured")
	}

	results := make(chan result, len(images))
	for i, content := range images {
		i, content := i, content
		u.wp.Submit(func() {
			url, err := u.upload(ctx, content)
			results <- result{index: i, url: url, err: err}
		})
	}

	urls := make([]string, len(images))
	var firstErr error
	for range images {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("image %d: %w", r.index, r.err)
		}
		urls[r.index] = r.url
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return urls, nil
}

func (u *Uploader) upload(ctx context.Context, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	file, err := filestorage.NewFileInfo(content, false)
	if err != nil {
		return "", err
	}
	return u.filestorage.Upload(ctx, file)
}
