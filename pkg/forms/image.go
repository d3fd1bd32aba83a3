package forms

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
)

const (
	// ImageField is the multipart field carrying the action icon.
	ImageField = "image"
	// MaxImageBytes caps uploaded icons at 5 MiB.
	MaxImageBytes = 5 << 20

	maxFieldBytes = 1 << 20
)

const (
	MsgImageRequired = "Por favor, selecciona una imagen para la acción"
	MsgImageTooLarge = "El archivo es demasiado grande. Máximo 5MB"
	MsgImageFormat   = "Formato de archivo no válido. Use JPG, PNG o SVG"
)

var (
	ErrImageRequired = errors.New(MsgImageRequired)
	ErrImageTooLarge = errors.New(MsgImageTooLarge)
	ErrImageFormat   = errors.New(MsgImageFormat)
)

// allowedImageTypes are matched against the sniffed type, not the declared one.
var allowedImageTypes = []string{"image/jpeg", "image/jpg", "image/png", "image/svg+xml"}

// Image is a validated upload held in memory until it is forwarded upstream.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the number of bytes in the upload.
func (i *Image) Size() int {
	return len(i.Data)
}

// HumanSize formats the size for logs and the create page.
func (i *Image) HumanSize() string {
	return humanize.IBytes(uint64(len(i.Data)))
}

// Reader returns a fresh reader over the upload.
func (i *Image) Reader() io.Reader {
	return bytes.NewReader(i.Data)
}

// ReadImage loads field from a parsed multipart request and validates it.
func ReadImage(r *http.Request, field string) (*Image, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, ErrImageRequired
		}
		return nil, err
	}
	defer file.Close()
	return CheckImage(file, header)
}

// CheckImage enforces the size limit and sniffs the content type.
func CheckImage(file multipart.File, header *multipart.FileHeader) (*Image, error) {
	if header == nil {
		return nil, ErrImageRequired
	}
	return CheckUpload(file, header.Filename, header.Size)
}

// CheckUpload validates size bytes read from r. The declared size is checked
// before anything is read.
func CheckUpload(r io.Reader, filename string, size int64) (*Image, error) {
	if size == 0 {
		return nil, ErrImageRequired
	}
	if size > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(r, MaxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, ErrImageRequired
	}
	if len(data) > MaxImageBytes {
		return nil, ErrImageTooLarge
	}

	detected := mimetype.Detect(data)
	for _, allowed := range allowedImageTypes {
		if detected.Is(allowed) {
			return &Image{
				Filename:    filename,
				ContentType: detected.String(),
				Data:        data,
			}, nil
		}
	}
	return nil, ErrImageFormat
}
