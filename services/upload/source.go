package upload

import (
	"bytes"
	"image"
	"path/filepath"
	"strings"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rotisserie/eris"
)

// Payload is an upload source reduced to bytes.
type Payload struct {
	Data        []byte
	ContentType string
	Extension   string
}

// NormalizeOptions bounds what Normalize accepts.
type NormalizeOptions struct {
	MaxBytes          int // 0 = unlimited
	MaxImageDimension int // 0 = never downscale
}

// DefaultRemotePrefixes are the storage hosts whose URLs are durable.
var DefaultRemotePrefixes = []string{
	"https://storage.googleapis.com/",
	"https://firebasestorage.googleapis.com/",
}

// IsRemoteURL reports whether url points at one of the given storage hosts.
func IsRemoteURL(url string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(url, p) {
			return true
		}
	}
	return false
}

// Normalize turns a local source into a payload. Raw bytes win over a data
// URI, which wins over a preview. Images larger than MaxImageDimension on
// either side are scaled down to fit.
func Normalize(src models.AssetSource, opts NormalizeOptions) (Payload, error) {
	var (
		data     []byte
		declared string
		err      error
	)

	switch {
	case len(src.Data) > 0:
		data = src.Data
	case src.DataURI != "":
		data, declared, err = utils.DecodeDataURI(src.DataURI)
	case src.PreviewDataURI != "":
		data, declared, err = utils.DecodeDataURI(src.PreviewDataURI)
	default:
		return Payload{}, eris.New("asset has no content")
	}
	if err != nil {
		return Payload{}, err
	}
	if len(data) == 0 {
		return Payload{}, eris.New("asset is empty")
	}
	if opts.MaxBytes > 0 && len(data) > opts.MaxBytes {
		return Payload{}, eris.Errorf("asset exceeds %d bytes", opts.MaxBytes)
	}

	mtype := mimetype.Detect(data)
	p := Payload{
		Data:        data,
		ContentType: mtype.String(),
		Extension:   mtype.Extension(),
	}
	if mtype.Is("application/octet-stream") && declared != "" {
		p.ContentType = declared
	}
	if p.Extension == "" && src.Filename != "" {
		p.Extension = strings.ToLower(filepath.Ext(src.Filename))
	}

	if opts.MaxImageDimension > 0 && strings.HasPrefix(p.ContentType, "image/") {
		resized, err := downscale(p.Data, p.Extension, opts.MaxImageDimension)
		if err != nil {
			return Payload{}, err
		}
		p.Data = resized
	}
	return p, nil
}

// downscale returns data unchanged when the format is not one imaging
// handles or the image already fits.
func downscale(data []byte, extension string, max int) ([]byte, error) {
	format, err := imaging.FormatFromExtension(extension)
	if err != nil {
		return data, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "invalid image")
	}
	if cfg.Width <= max && cfg.Height <= max {
		return data, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, eris.Wrap(err, "invalid image")
	}
	img = imaging.Fit(img, max, max, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, eris.Wrap(err, "failed to encode image")
	}
	return buf.Bytes(), nil
}
