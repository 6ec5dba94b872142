package analysis

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/campusai/campus/pkg/apierr"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize = 30 << 20

// allowedTypes maps each accepted MIME type to the extensions it may carry.
var allowedTypes = map[string][]string{
	"application/pdf":    {"pdf"},
	"application/msword": {"doc"},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   {"docx"},
	"text/plain":               {"txt"},
	"image/jpeg":               {"jpg", "jpeg"},
	"image/png":                {"png"},
	"application/vnd.ms-excel": {"xls"},
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         {"xlsx"},
	"application/vnd.ms-powerpoint":                                             {"ppt"},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {"pptx"},
}

// readableTypes are the accepted types whose bytes are usable as text.
var readableTypes = map[string]struct{}{
	"text/plain": {},
}

// ValidateFile checks an upload the way the campus upload forms do: size
// limit, MIME allow-list (sniffed from data), extension matching the MIME
// type, and no path components in the name. It returns the detected type.
func ValidateFile(name string, size int64, data []byte) (string, error) {
	if size > MaxFileSize {
		return "", apierr.New(apierr.KindPayloadTooLarge, "File size exceeds 30MB limit")
	}

	detected := mimetype.Detect(data)
	mime := ""
	for allowed := range allowedTypes {
		if detected.Is(allowed) {
			mime = allowed
			break
		}
	}
	if mime == "" {
		return "", apierr.New(apierr.KindInvalidRequest,
			"Invalid file type. Only PDF, Word, Excel, PowerPoint, images, and text files are allowed.")
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	if ext == "" {
		return "", apierr.New(apierr.KindInvalidRequest, "File must have a valid extension")
	}
	if !slices.Contains(allowedTypes[mime], ext) {
		return "", apierr.Newf(apierr.KindInvalidRequest, "File extension .%s does not match the file type %s", ext, mime)
	}

	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return "", apierr.New(apierr.KindInvalidRequest, "Invalid characters in filename")
	}

	return mime, nil
}

// Readable reports whether files of the given type can be analyzed as text.
func Readable(mime string) bool {
	_, ok := readableTypes[mime]
	return ok
}

// AddPath reads a file from disk and adds it under its base name. The size
// limit is checked before the file is read.
func (b *Builder) AddPath(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileSize {
		return apierr.New(apierr.KindPayloadTooLarge, "File size exceeds 30MB limit")
	}

	data, err := io.ReadAll(io.LimitReader(f, MaxFileSize+1))
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return b.AddFile(filepath.Base(path), data)
}
