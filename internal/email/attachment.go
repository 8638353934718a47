package email

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

const defaultContentType = "application/octet-stream"

// compressionExts are extensions that describe a transfer encoding rather than
// a content type. Files carrying them are sent as opaque binary.
var compressionExts = map[string]struct{}{
	".gz":  {},
	".bz2": {},
	".xz":  {},
	".z":   {},
	".br":  {},
}

// Attachment is a pending reference to a file. Nothing is read until Resolve.
type Attachment struct {
	Path string
	// Name overrides the filename presented to the reader.
	Name string
}

// ResolveStatus is the outcome of looking an attachment up on disk.
type ResolveStatus int

const (
	Found ResolveStatus = iota
	Missing
	NotAFile
)

func (s ResolveStatus) String() string {
	switch s {
	case Found:
		return "found"
	case Missing:
		return "missing"
	case NotAFile:
		return "not a file"
	default:
		return fmt.Sprintf("ResolveStatus(%d)", int(s))
	}
}

// ResolvedAttachment is an attachment after its file was looked up. Content
// and ContentType are only populated when Status is Found.
type ResolvedAttachment struct {
	Attachment
	Status      ResolveStatus
	Filename    string
	ContentType string
	Content     []byte
}

// DisplayName returns the name presented to the reader.
func (a Attachment) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return filepath.Base(a.Path)
}

// Resolve reads the referenced file. A missing path or a path that is not a
// regular file is reported through Status, not as an error; the error return
// is reserved for files that exist but cannot be read.
func (a Attachment) Resolve() (ResolvedAttachment, error) {
	res := ResolvedAttachment{Attachment: a, Filename: a.DisplayName()}

	// Any stat failure counts as missing, including a path through a
	// non-directory.
	info, err := os.Stat(a.Path)
	if err != nil {
		res.Status = Missing
		return res, nil
	}
	if !info.Mode().IsRegular() {
		res.Status = NotAFile
		return res, nil
	}

	content, err := os.ReadFile(a.Path)
	if err != nil {
		return res, fmt.Errorf("failed to read attachment %q: %w", a.Path, err)
	}

	res.Status = Found
	res.Content = content
	res.ContentType = GuessContentType(a.Path)
	return res, nil
}

// GuessContentType derives a media type from the extension of path. Unknown
// extensions and compression suffixes map to application/octet-stream.
// Parameters such as charset are stripped.
func GuessContentType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return defaultContentType
	}
	if _, ok := compressionExts[ext]; ok {
		return defaultContentType
	}
	ctype := mime.TypeByExtension(ext)
	if ctype == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(ctype)
	if err != nil {
		return defaultContentType
	}
	return mediaType
}

// AttachmentSkipped records an attachment that was left out of a composed
// message.
type AttachmentSkipped struct {
	Path   string
	Status ResolveStatus
}

func (s AttachmentSkipped) String() string {
	switch s.Status {
	case Missing:
		return fmt.Sprintf("file %q does not exist, not attaching to email", s.Path)
	case NotAFile:
		return fmt.Sprintf("attachment %q is not a file, not attaching to email", s.Path)
	default:
		return fmt.Sprintf("attachment %q skipped: %s", s.Path, s.Status)
	}
}
