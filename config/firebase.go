// config/firebase.go
package config

import (
	"context"
	"encoding/base64"
	"os"

	firebase "firebase.google.com/go/v4"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// InitFirebase initializes the Firebase Admin SDK. Base64 credentials take
// precedence over a credentials file; with neither set the SDK falls back to
// application default credentials.
func InitFirebase(ctx context.Context, cfg FirebaseConfig, logger *zap.Logger) (*firebase.App, error) {
	appConfig := &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, eris.Wrap(err, "decode firebase credentials")
		}
		logger.Info("using Firebase credentials from base64 environment variable")
		opts = append(opts, option.WithCredentialsJSON(decoded))
	case cfg.CredentialsFile != "":
		if _, err := os.Stat(cfg.CredentialsFile); err != nil {
			return nil, eris.Wrapf(err, "firebase credentials file %s", cfg.CredentialsFile)
		}
		logger.Info("using Firebase credentials file", zap.String("path", cfg.CredentialsFile))
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	default:
		logger.Warn("no Firebase credentials configured, using application default credentials")
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, eris.Wrap(err, "initialize firebase app")
	}
	return app, nil
}
