// Package imagedata turns client-supplied image payloads (data URIs or bare
// base64) into a media type and raw bytes.
package imagedata

import (
	"encoding/base64"
	"errors"
	"regexp"
	"strings"
	"unicode"
)

// DefaultMediaType is assumed when the payload carries no data URI prefix.
const DefaultMediaType = "image/jpeg"

var ErrInvalidImageData = errors.New("invalid image data")

// Parameters such as ";charset=binary" or ";name=scan.png" may sit between the
// media type and ";base64,".
var dataURIPattern = regexp.MustCompile(`^data:([^;,]+)(?:;[^;,]*)*;base64,`)

// Image is a decoded image payload.
type Image struct {
	MediaType string
	Bytes     []byte
}

// Normalize parses input as "data:<type>[;param...];base64,<payload>" or, failing that,
// as bare base64 with the default media type. A bare input that still contains
// a "base64," marker has everything up to the marker discarded.
func Normalize(input string) (Image, error) {
	raw := strings.TrimSpace(input)
	if raw == "" {
		return Image{}, ErrInvalidImageData
	}

	mediaType := DefaultMediaType
	payload := raw
	if m := dataURIPattern.FindStringSubmatch(raw); m != nil {
		mediaType = m[1]
		payload = raw[len(m[0]):]
	} else if idx := strings.Index(raw, "base64,"); idx >= 0 {
		payload = raw[idx+len("base64,"):]
	}

	payload = stripSpace(payload)
	if payload == "" {
		return Image{}, ErrInvalidImageData
	}
	data, err := decode(payload)
	if err != nil || len(data) == 0 {
		return Image{}, ErrInvalidImageData
	}
	return Image{MediaType: mediaType, Bytes: data}, nil
}

func decode(payload string) ([]byte, error) {
	if data, err := base64.StdEncoding.DecodeString(payload); err == nil {
		return data, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// DataURI re-encodes the image as a base64 data URI.
func (i Image) DataURI() string {
	return "data:" + i.MediaType + ";base64," + base64.StdEncoding.EncodeToString(i.Bytes)
}

// Extension returns the file extension used when storing an image of mediaType.
func Extension(mediaType string) string {
	switch strings.ToLower(strings.TrimSpace(mediaType)) {
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	case "image/bmp":
		return "bmp"
	case "image/tiff":
		return "tiff"
	case "application/dicom":
		return "dcm"
	default:
		return "bin"
	}
}
