// Package imagecodec converts raster images to and from the text-safe
// payload stored in a catalog record's image field: PNG compression
// followed by standard base64.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"github.com/pkg/errors"
)

// MaxPayloadBytes bounds the decoded payload size. Catalog images are
// thumbnails; anything past this is a malformed or hostile payload.
const MaxPayloadBytes = 16 << 20

// Encode compresses img as PNG and base64-encodes the result. The output
// is deterministic for a given image and always round-trips through Decode.
func Encode(img image.Image) (string, error) {
	if img == nil {
		return "", errors.New("imagecodec: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "imagecodec: png encode")
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Decode reverses Encode. Malformed input yields an error, never a panic;
// callers treat a failed decode as "record has no image".
func Decode(payload string) (image.Image, error) {
	if payload == "" {
		return nil, errors.New("imagecodec: empty payload")
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxPayloadBytes {
		return nil, errors.New("imagecodec: payload too large")
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, errors.Wrap(err, "imagecodec: base64 decode")
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrap(err, "imagecodec: png decode")
	}
	return img, nil
}
