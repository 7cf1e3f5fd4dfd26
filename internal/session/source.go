package session

import (
	"errors"
	"fmt"
	"image"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Decoders registered for image.Decode.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrNotImage is returned for files whose content is not an image.
	ErrNotImage = errors.New("not an image file")
	// ErrDecode wraps decoder failures for files that looked like images.
	ErrDecode = errors.New("could not decode image")
)

// Source is a decoded sprite sheet.
type Source struct {
	Path    string
	Format  string
	Image   image.Image
	ModTime time.Time
}

// Width and Height are the native pixel dimensions.
func (s *Source) Width() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dx()
}

func (s *Source) Height() int {
	if s == nil || s.Image == nil {
		return 0
	}
	return s.Image.Bounds().Dy()
}

// Name is the file's base name, or the path itself for in-memory sheets.
func (s *Source) Name() string {
	if s == nil {
		return ""
	}
	return filepath.Base(s.Path)
}

// Release drops the pixel data. The Source must not be used afterwards.
func (s *Source) Release() {
	if s != nil {
		s.Image = nil
	}
}

// FromImage wraps an already-decoded image, e.g. a generated demo sheet.
func FromImage(name string, img image.Image) *Source {
	return &Source{Path: name, Format: "memory", Image: img, ModTime: time.Now()}
}

// Sniff reports the MIME type of the file at path. Content sniffing wins;
// the extension is consulted when the bytes are inconclusive.
func Sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%w: %s is empty", ErrNotImage, filepath.Base(path))
	}
	sniffed := http.DetectContentType(head[:n])
	if strings.HasPrefix(sniffed, "image/") {
		return sniffed, nil
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); strings.HasPrefix(byExt, "image/") {
		return byExt, nil
	}
	return "", fmt.Errorf("%w: %s is %s", ErrNotImage, filepath.Base(path), sniffed)
}

// IsImageName reports whether name has an extension of a decodable format.
func IsImageName(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}

// Open sniffs and decodes the image at path. Non-image content yields
// ErrNotImage; content that sniffs as an image but fails to decode yields
// ErrDecode.
func Open(path string) (*Source, error) {
	if _, err := Sniff(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, filepath.Base(path), err)
	}
	if b := img.Bounds(); b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("%w: %s has no pixels", ErrDecode, filepath.Base(path))
	}
	src := &Source{Path: path, Format: format, Image: img}
	if info, err := f.Stat(); err == nil {
		src.ModTime = info.ModTime()
	}
	return src, nil
}
