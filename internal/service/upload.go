package service

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/kbstrap/internal/domain"
	"github.com/cloo-solutions/kbstrap/internal/storage"
	"go.uber.org/zap"
)

// ObjectUploader puts one local file into a bucket and reads back what was stored
type ObjectUploader interface {
	Upload(ctx context.Context, localFile, bucket, key string) error
	HeadObject(ctx context.Context, bucket, key string) (*storage.ObjectMetadata, error)
}

// UploadFailure records a file that could not be uploaded
type UploadFailure struct {
	Key string
	Err error
}

// UploadReport summarizes one UploadTree call. Uploaded lists keys whose
// stored size matched the local file.
type UploadReport struct {
	Uploaded []string
	Failed   []UploadFailure
	Bytes    int64
}

// Uploader mirrors a local directory into a bucket
type Uploader struct {
	store  ObjectUploader
	logger *zap.Logger
}

// NewUploader creates a new Uploader instance
func NewUploader(store ObjectUploader, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{store: store, logger: logger}
}

// UploadTree uploads every regular file under localRoot, keyed by its path
// relative to localRoot with forward slashes. Each object is read back after
// the put. A failed file is logged and skipped; re-running overwrites what was
// uploaded before.
func (u *Uploader) UploadTree(ctx context.Context, localRoot, bucket string) (UploadReport, error) {
	var report UploadReport

	info, err := os.Stat(localRoot)
	if err != nil || !info.IsDir() {
		if err == nil {
			err = fmt.Errorf("%s is not a directory", localRoot)
		}
		return report, domain.NewDomainErrorWithCause(domain.ErrCodeFatalSetup, domain.ErrDataDirMissing.Message, err)
	}

	u.logger.Info("uploading directory", zap.String("dir", localRoot), zap.String("bucket", bucket))

	err = filepath.WalkDir(localRoot, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == localRoot {
				return walkErr
			}
			u.logger.Error("failed to read path", zap.String("path", path), zap.Error(walkErr))
			report.Failed = append(report.Failed, UploadFailure{Key: path, Err: walkErr})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(localRoot, path)
		if err != nil {
			report.Failed = append(report.Failed, UploadFailure{Key: path, Err: err})
			return nil
		}
		key := filepath.ToSlash(rel)

		size, err := u.uploadFile(ctx, path, bucket, key, d)
		if err != nil {
			u.logger.Error("failed to upload file", zap.String("file", path), zap.String("key", key), zap.Error(err))
			report.Failed = append(report.Failed, UploadFailure{Key: key, Err: err})
			return nil
		}
		report.Uploaded = append(report.Uploaded, key)
		report.Bytes += size
		return nil
	})
	if err != nil {
		return report, domain.NewDomainErrorWithCause(domain.ErrCodeFatalSetup, "failed to walk data directory", err)
	}

	u.logger.Info("upload finished",
		zap.String("bucket", bucket),
		zap.Int("uploaded", len(report.Uploaded)),
		zap.Int("failed", len(report.Failed)),
		zap.Int64("bytes", report.Bytes),
	)
	return report, nil
}

func (u *Uploader) uploadFile(ctx context.Context, path, bucket, key string, d fs.DirEntry) (int64, error) {
	info, err := d.Info()
	if err != nil {
		return 0, err
	}

	u.logger.Debug("uploading file", zap.String("file", path), zap.String("key", key))
	if err := u.store.Upload(ctx, path, bucket, key); err != nil {
		return 0, err
	}

	meta, err := u.store.HeadObject(ctx, bucket, key)
	if err != nil {
		return 0, err
	}
	if meta.ContentLength != info.Size() {
		return 0, fmt.Errorf("stored object is %d bytes, local file is %d", meta.ContentLength, info.Size())
	}
	return info.Size(), nil
}
