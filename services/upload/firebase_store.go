package upload

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type objectOpener func(ctx context.Context, objectPath, contentType string) io.WriteCloser

// FirebaseStore writes objects to a Firebase Storage bucket.
type FirebaseStore struct {
	bucketName string
	open       objectOpener
	logger     *zap.Logger
}

// NewFirebaseStore opens bucketName, or the app's default bucket when empty.
func NewFirebaseStore(ctx context.Context, app *firebase.App, bucketName string, logger *zap.Logger) (*FirebaseStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "failed to create storage client")
	}

	var bucket *gcs.BucketHandle
	if bucketName == "" {
		bucket, err = client.DefaultBucket()
	} else {
		bucket, err = client.Bucket(bucketName)
	}
	if err != nil {
		return nil, eris.Wrap(err, "failed to open bucket")
	}

	if bucketName == "" {
		attrs, err := bucket.Attrs(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "failed to read bucket attributes")
		}
		bucketName = attrs.Name
	}

	return &FirebaseStore{
		bucketName: bucketName,
		open: func(ctx context.Context, objectPath, contentType string) io.WriteCloser {
			w := bucket.Object(objectPath).NewWriter(ctx)
			w.ContentType = contentType
			w.CacheControl = "public, max-age=31536000"
			return w
		},
		logger: logger,
	}, nil
}

// Put writes data to objectPath.
func (s *FirebaseStore) Put(ctx context.Context, objectPath, contentType string, data []byte) (StoredObject, error) {
	w := s.open(ctx, objectPath, contentType)
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return StoredObject{}, eris.Wrapf(err, "failed to write %s", objectPath)
	}
	if err := w.Close(); err != nil {
		return StoredObject{}, eris.Wrapf(err, "failed to finalize %s", objectPath)
	}

	s.logger.Debug("object stored",
		zap.String("bucket", s.bucketName),
		zap.String("path", objectPath))

	return StoredObject{
		URL:      PublicURL(s.bucketName, objectPath),
		ObjectID: objectPath,
		Folder:   Folder(objectPath),
	}, nil
}

// PublicURL is the storage.googleapis.com URL of an object.
func PublicURL(bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, strings.Join(segments, "/"))
}
