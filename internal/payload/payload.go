// Package payload holds the image served on the selection and the URL
// advertised alongside it.
//
// A Source is built once at startup and is read-only afterwards. Every byte
// range handed to the transfer code goes through Slice, which is the only
// place offset arithmetic is bounds-checked.
package payload

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"

	"github.com/h2non/filetype"
	"github.com/zeebo/blake3"
)

// DefaultMIME is the image target used when the file type cannot be detected.
const DefaultMIME = "image/png"

// sniffLen is how much of the file filetype needs to recognise every
// matcher it ships with.
const sniffLen = 8192

// View is a window into the payload bytes.
type View struct {
	Offset int
	Length int
}

// End returns the offset one past the last byte of the view.
func (v View) End() int { return v.Offset + v.Length }

// RangeError reports a view that does not fit inside the payload.
type RangeError struct {
	View View
	Size int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("payload: range [%d, %d) out of bounds for %d bytes",
		e.View.Offset, e.View.End(), e.Size)
}

// Source is the immutable image payload.
type Source struct {
	data   []byte
	url    string
	mime   string
	digest [32]byte
}

// New returns a Source over a private copy of data.
func New(data []byte, rawURL, mime string) *Source {
	if mime == "" {
		mime = DefaultMIME
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return &Source{
		data:   buf,
		url:    rawURL,
		mime:   mime,
		digest: blake3.Sum256(buf),
	}
}

// Load reads the image at path and derives its URL from baseURL and the
// file's base name.
func Load(path, baseURL string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mime := DetectMIME(data)
	if mime == "" {
		slog.Warn("file is not a recognised image, serving as "+DefaultMIME, "path", path)
		mime = DefaultMIME
	}
	return New(data, BuildURL(baseURL, path), mime), nil
}

// BuildURL appends the escaped base name of path to baseURL. baseURL is
// used as a plain prefix, so it normally ends with a slash.
func BuildURL(baseURL, path string) string {
	return baseURL + url.PathEscape(filepath.Base(path))
}

// DetectMIME returns the image MIME type of data, or "" if data is not an
// image filetype knows about.
func DetectMIME(data []byte) string {
	head := data
	if len(head) > sniffLen {
		head = head[:sniffLen]
	}
	if !filetype.IsImage(head) {
		return ""
	}
	kind, err := filetype.Match(head)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Size returns the number of image bytes.
func (s *Source) Size() int { return len(s.data) }

// URL returns the advertised URL string.
func (s *Source) URL() string { return s.url }

// MIME returns the image MIME type, used as the image target name.
func (s *Source) MIME() string { return s.mime }

// Digest returns the hex BLAKE3-256 digest of the image bytes.
func (s *Source) Digest() string { return hex.EncodeToString(s.digest[:]) }

// Bytes returns length bytes starting at offset.
func (s *Source) Bytes(offset, length int) ([]byte, error) {
	return s.Slice(View{Offset: offset, Length: length})
}

// Slice returns the bytes covered by v. The returned slice aliases the
// payload and must not be modified.
func (s *Source) Slice(v View) ([]byte, error) {
	if v.Offset < 0 || v.Length < 0 || v.Offset > len(s.data) || v.Length > len(s.data)-v.Offset {
		return nil, &RangeError{View: v, Size: len(s.data)}
	}
	return s.data[v.Offset:v.End():v.End()], nil
}
