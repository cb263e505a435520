package utils

import (
	"bytes"
	"encoding/base64"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rotisserie/eris"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

const thumbnailWidth = 320

// IsDataURI reports whether s is a data: URI.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURI decodes a data URI such as "data:image/png;base64,iVBOR...".
// Non-base64 payloads are percent-decoded.
func DecodeDataURI(uri string) ([]byte, string, error) {
	if !IsDataURI(uri) {
		return nil, "", eris.New("not a data URI")
	}

	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, "", eris.New("malformed data URI: missing comma")
	}

	meta := uri[len("data:"):comma]
	payload := uri[comma+1:]

	isBase64 := false
	contentType := "text/plain"
	for i, part := range strings.Split(meta, ";") {
		switch {
		case i == 0 && part != "":
			contentType = part
		case part == "base64":
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some encoders drop padding
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return nil, "", eris.Wrap(err, "malformed data URI payload")
			}
		}
		return data, contentType, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", eris.Wrap(err, "malformed data URI payload")
	}
	return []byte(decoded), contentType, nil
}

// EncodeDataURI builds a base64 data URI.
func EncodeDataURI(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// GenerateVideoThumbnail extracts the frame at one second of a video and
// returns it as a JPEG resized to a width of 320px.
func GenerateVideoThumbnail(video []byte, extension string) ([]byte, error) {
	tempDir, err := os.MkdirTemp("", "thumb-*")
	if err != nil {
		return nil, eris.Wrap(err, "failed to create temp dir")
	}
	defer os.RemoveAll(tempDir)

	if extension == "" {
		extension = ".mp4"
	}
	videoPath := filepath.Join(tempDir, "video"+extension)
	thumbnailPath := filepath.Join(tempDir, "thumbnail.jpg")

	if err := os.WriteFile(videoPath, video, 0600); err != nil {
		return nil, eris.Wrap(err, "failed to write video")
	}

	err = ffmpeg.Input(videoPath).
		Output(thumbnailPath, ffmpeg.KwArgs{"vframes": 1, "ss": "00:00:01"}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, eris.Wrap(err, "failed to generate thumbnail")
	}

	img, err := imaging.Open(thumbnailPath)
	if err != nil {
		return nil, eris.Wrap(err, "failed to decode thumbnail")
	}

	resized := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, eris.Wrap(err, "failed to encode thumbnail")
	}
	return buf.Bytes(), nil
}
