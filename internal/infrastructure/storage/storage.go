// Package storage stores uploaded product images on local disk or in S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stockitup/backend/internal/infrastructure/config"
)

var (
	// ErrFileTooLarge is returned for uploads above the configured ceiling
	ErrFileTooLarge = errors.New("file too large")

	// ErrUnsupportedType is returned for uploads that are not a supported image
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrInvalidKey is returned for empty keys or keys escaping the storage root
	ErrInvalidKey = errors.New("invalid storage key")
)

// AllowedImageTypes maps accepted content types to the file extension they are stored with
var AllowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStorage is the port used by the catalog to store product media
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string) (string, error)
}

// Image is a validated upload ready to be stored
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

// ReadImage reads at most maxSize bytes from r and sniffs the content type.
// The declared content type of the upload is ignored.
func ReadImage(r io.Reader, maxSize int64) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return nil, fmt.Errorf("%w: maximum is %s", ErrFileTooLarge, humanize.IBytes(uint64(maxSize)))
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrUnsupportedType)
	}

	contentType := http.DetectContentType(data)
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	ext, ok := AllowedImageTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: %s (allowed: jpeg, png, webp, gif)", ErrUnsupportedType, contentType)
	}
	return &Image{Data: data, ContentType: contentType, Extension: ext}, nil
}

// ProductImageKey returns a fresh key for a product image
func ProductImageKey(sku, ext string) string {
	return path.Join("products", sanitize(sku), uuid.NewString()+ext)
}

func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func cleanKey(key string) (string, error) {
	key = strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
	if key == "" || key == "." || strings.HasPrefix(key, "..") {
		return "", ErrInvalidKey
	}
	return key, nil
}

// New creates the storage selected by cfg.Type
func New(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (ObjectStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Type {
	case config.StorageS3:
		s, err := NewS3Storage(ctx, cfg.S3, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		logger.Info("Using S3 media storage", zap.String("bucket", cfg.S3.Bucket))
		return s, nil
	default:
		logger.Info("Using local media storage", zap.String("root", cfg.MediaRoot))
		return NewLocalStorage(cfg.MediaRoot, cfg.MediaURL), nil
	}
}

// bodyReader wraps data for SDK uploads that need a seekable body
func bodyReader(data []byte) io.ReadSeeker {
	return bytes.NewReader(data)
}
