package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	MIMEPNG  = "image/png"
	MIMEJPEG = "image/jpeg"
)

// Image is an encoded bitmap together with its MIME type. On the wire it
// travels as a data URL ("data:image/png;base64,...").
type Image struct {
	MIMEType string
	Data     []byte
}

// NewPNG wraps PNG-encoded bytes.
func NewPNG(data []byte) Image {
	return Image{MIMEType: MIMEPNG, Data: data}
}

// IsZero reports whether the image carries no data.
func (img Image) IsZero() bool {
	return len(img.Data) == 0
}

// Equal reports whether both images have the same type and bytes.
func (img Image) Equal(other Image) bool {
	return img.MIMEType == other.MIMEType && bytes.Equal(img.Data, other.Data)
}

// DataURL renders the image as a base64 data URL.
func (img Image) DataURL() string {
	mime := img.MIMEType
	if mime == "" {
		mime = MIMEPNG
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// ParseDataURL decodes a base64 data URL into an Image.
func ParseDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}
	mime, payload, ok := strings.Cut(rest, ";base64,")
	if !ok {
		return Image{}, fmt.Errorf("%w: not base64 encoded", ErrInvalidDataURL)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}
	if mime == "" {
		mime = MIMEPNG
	}
	return Image{MIMEType: mime, Data: data}, nil
}

func (img Image) MarshalJSON() ([]byte, error) {
	return json.Marshal(img.DataURL())
}

func (img *Image) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDataURL(s)
	if err != nil {
		return err
	}
	*img = parsed
	return nil
}
