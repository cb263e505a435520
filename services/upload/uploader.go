// Package upload turns form media into durable storage objects.
package upload

import (
	"context"
	"errors"
	"strings"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrUploadFailed is wrapped by every upload error.
var ErrUploadFailed = errors.New("upload failed")

// StoredObject is what the object store returns for one write.
type StoredObject struct {
	URL      string
	ObjectID string
	Folder   string
}

// ObjectStore writes one binary object.
type ObjectStore interface {
	Put(ctx context.Context, objectPath, contentType string, data []byte) (StoredObject, error)
}

// Options configures an Uploader.
type Options struct {
	BaseFolder        string
	MaxBytes          int
	MaxImageDimension int
	RemotePrefixes    []string
}

// Uploader uploads single assets under the deterministic object layout.
type Uploader struct {
	store  ObjectStore
	opts   Options
	logger *zap.Logger
}

// NewUploader creates an Uploader. Nil RemotePrefixes means DefaultRemotePrefixes.
func NewUploader(store ObjectStore, opts Options, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RemotePrefixes == nil {
		opts.RemotePrefixes = DefaultRemotePrefixes
	}
	return &Uploader{store: store, opts: opts, logger: logger}
}

// Upload stores src as {base}/{businessID}/{category}/{name}{ext}. A source
// that already points at durable storage is returned as is without a write.
func (u *Uploader) Upload(ctx context.Context, businessID, category, name string, src models.AssetSource) (models.AssetReference, error) {
	if src.URL != "" {
		if !IsRemoteURL(src.URL, u.opts.RemotePrefixes) {
			return models.AssetReference{}, eris.Wrapf(ErrUploadFailed, "%s: unrecognised storage host", name)
		}
		ref := models.AssetReference{
			URL:          src.URL,
			PublicID:     src.PublicID,
			OriginalName: src.Filename,
		}
		if strings.Contains(src.PublicID, "/") {
			ref.Folder = Folder(src.PublicID)
		}
		return ref, nil
	}

	payload, err := Normalize(src, NormalizeOptions{
		MaxBytes:          u.opts.MaxBytes,
		MaxImageDimension: u.opts.MaxImageDimension,
	})
	if err != nil {
		return models.AssetReference{}, eris.Wrapf(ErrUploadFailed, "%s: %v", name, err)
	}

	objectPath := ObjectPath(u.opts.BaseFolder, businessID, category, name, payload.Extension)
	obj, err := u.store.Put(ctx, objectPath, payload.ContentType, payload.Data)
	if err != nil {
		u.logger.Error("object write failed",
			zap.String("path", objectPath),
			zap.Error(err))
		return models.AssetReference{}, eris.Wrapf(ErrUploadFailed, "%s: %v", name, err)
	}

	folder := obj.Folder
	if folder == "" {
		folder = Folder(objectPath)
	}
	objectID := obj.ObjectID
	if objectID == "" {
		objectID = objectPath
	}

	u.logger.Debug("asset uploaded",
		zap.String("path", objectPath),
		zap.Int("bytes", len(payload.Data)))

	return models.AssetReference{
		URL:          obj.URL,
		PublicID:     objectID,
		OriginalName: src.Filename,
		Folder:       folder,
	}, nil
}
