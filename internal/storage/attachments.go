// Package storage persists raw attachment content on disk under
// collision-resistant keys.
package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// fallbackContentType is used when the source message declares no
// usable MIME type for an attachment.
const fallbackContentType = "application/octet-stream"

// Stored describes a successfully written attachment. The caller is
// responsible for registering it in the directory; writing the file
// creates no database record.
type Stored struct {
	// Key uniquely identifies the stored content and doubles as the
	// on-disk filename. It is assigned before the file is written, so a
	// record referencing it can never point at a key that was never
	// created.
	Key string

	// Filename is the sanitized filename embedded in the key.
	Filename    string
	Size        int64
	ContentType string
}

// Store writes attachment content to a dedicated directory.
// It is safe for concurrent use.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created on
// first use, not here.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes content to disk under a freshly generated key and returns
// the metadata the caller needs to register the attachment.
// Re-saving byte-identical content always produces a new key; there is
// no deduplication.
func (s *Store) Save(originalFilename string, content []byte, contentType string) (Stored, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Stored{}, fmt.Errorf("failed to create attachment directory: %w", err)
	}

	sanitized := SanitizeFilename(originalFilename)
	key := uuid.NewString() + "_" + sanitized

	path := filepath.Join(s.dir, key)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return Stored{}, fmt.Errorf("failed to write attachment %s: %w", key, err)
	}

	return Stored{
		Key:         key,
		Filename:    sanitized,
		Size:        int64(len(content)),
		ContentType: normalizeContentType(contentType, sanitized),
	}, nil
}

// Path returns the on-disk location for a stored key.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, key)
}

// SanitizeFilename transliterates a filename into a filesystem-safe
// form: every character outside [A-Za-z0-9._-] becomes an underscore.
// The original filename is preserved elsewhere for display.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "attachment"
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// normalizeContentType returns the declared MIME type, falling back to
// extension sniffing and finally to a generic octet-stream type.
func normalizeContentType(declared, filename string) string {
	if declared != "" {
		return declared
	}
	if byExt := mime.TypeByExtension(filepath.Ext(filename)); byExt != "" {
		return byExt
	}
	return fallbackContentType
}
