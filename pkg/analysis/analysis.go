// Package analysis prepares question paper content for the document analysis
// gateway: uploaded files are validated and concatenated under labeled
// separators, optionally followed by pasted text, and the result is checked
// against the gateway's size ceiling before any network call.
package analysis

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/campusai/campus/pkg/apierr"
)

// MaxContentRunes is the largest analysis payload, in characters, the
// gateway accepts.
const MaxContentRunes = 100_000

// FileSeparator returns the label that precedes a file's contents.
func FileSeparator(name string) string {
	return "=== File: " + name + " ==="
}

// PastedSeparator precedes pasted text.
const PastedSeparator = "=== Pasted text ==="

// Validate checks content against the analysis contract: it must not be
// blank and must not exceed MaxContentRunes characters.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return apierr.New(apierr.KindInvalidRequest, "Please paste or upload question paper content first")
	}
	if n := utf8.RuneCountInString(content); n > MaxContentRunes {
		return apierr.Newf(apierr.KindPayloadTooLarge,
			"Content is %d characters; the limit is %d. Remove some files or trim the text.", n, MaxContentRunes)
	}
	return nil
}

type part struct {
	name    string
	content string
}

// Builder concatenates files and pasted text into one analysis payload.
// Files appear in the order they were added, pasted text last.
type Builder struct {
	files  []part
	pasted string
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddFile validates an upload and queues its text. Only text-bearing types
// can be analyzed.
func (b *Builder) AddFile(name string, data []byte) error {
	mime, err := ValidateFile(name, int64(len(data)), data)
	if err != nil {
		return err
	}
	if !Readable(mime) {
		return apierr.Newf(apierr.KindInvalidRequest,
			"%s: text cannot be extracted from %s files; paste the text instead", name, mime)
	}

	b.files = append(b.files, part{
		name:    name,
		content: strings.ToValidUTF8(string(data), string(utf8.RuneError)),
	})
	return nil
}

// SetPasted sets the pasted text. Blank text is ignored.
func (b *Builder) SetPasted(text string) {
	b.pasted = text
}

// Files returns the names of the queued files.
func (b *Builder) Files() []string {
	names := make([]string, len(b.files))
	for i, f := range b.files {
		names[i] = f.name
	}
	return names
}

// Build joins the queued parts and validates the result.
func (b *Builder) Build() (string, error) {
	var sb strings.Builder
	for _, f := range b.files {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(FileSeparator(f.name))
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimRight(f.content, "\n"))
	}

	if strings.TrimSpace(b.pasted) != "" {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(PastedSeparator)
		sb.WriteByte('\n')
		sb.WriteString(strings.TrimRight(b.pasted, "\n"))
	}

	content := sb.String()
	if err := Validate(content); err != nil {
		return "", err
	}
	return content, nil
}

// Summary describes the payload for display, e.g. "2 files, 3,412 characters".
func Summary(files int, content string) string {
	noun := "files"
	if files == 1 {
		noun = "file"
	}
	return fmt.Sprintf("%d %s, %d characters", files, noun, utf8.RuneCountInString(content))
}
