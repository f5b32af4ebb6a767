package storage

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/tiff"

	apperrors "github.com/anime-shed/sem-inspector-go/internal/errors"
)

// MaxImageBytes bounds how much of an image body is read
const MaxImageBytes = 256 << 20

// errImageTooLarge marks bodies that hit MaxImageBytes
var errImageTooLarge = errors.New("image exceeds size limit")

// DecodeImage decodes PNG, JPEG, GIF or TIFF data and returns the format name
func DecodeImage(r io.Reader) (image.Image, string, error) {
	lr := &limitedReader{r: r, n: MaxImageBytes}
	img, format, err := image.Decode(lr)
	if lr.exceeded {
		return nil, "", apperrors.NewInvalidImageError(fmt.Sprintf("image larger than %d bytes", MaxImageBytes), errImageTooLarge)
	}
	if err != nil {
		return nil, "", apperrors.NewInvalidImageError("failed to decode image", err)
	}
	return img, format, nil
}

// limitedReader is io.LimitReader that remembers hitting the limit
type limitedReader struct {
	r        io.Reader
	n        int64
	exceeded bool
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.n <= 0 {
		l.exceeded = true
		return 0, errImageTooLarge
	}
	if int64(len(p)) > l.n {
		p = p[:l.n]
	}
	n, err := l.r.Read(p)
	l.n -= int64(n)
	return n, err
}
