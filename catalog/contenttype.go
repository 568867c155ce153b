package catalog

import (
	"io"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

const (
	sniffLen    = 1024
	octetStream = "application/octet-stream"
	plainText   = "text/plain"
)

// extensionTypes covers the types gateway users upload most; anything else
// falls through to the system mime table.
var extensionTypes = map[string]string{
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".txt":  "text/plain",
	".log":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".xml":  "application/xml",
	".yaml": "application/yaml",
	".yml":  "application/yaml",
	".html": "text/html",
	".htm":  "text/html",
	".py":   "text/x-python",
	".sh":   "application/x-sh",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".zip":  "application/zip",
	".tar":  "application/x-tar",
	".gz":   "application/gzip",
	".bin":  octetStream,
}

// ContentType resolves the content type recorded for fullPath: the given
// value wins, then the file extension. When neither yields a specific type
// the first KiB is read and the file is classified as plain text if it is
// valid UTF-8. An empty result means unknown.
func (b *Bridge) ContentType(fullPath, given string) string {
	result := given
	if result == "" {
		result = typeByExtension(fullPath)
	}
	if result == "" || result == octetStream {
		if b.isText(fullPath) {
			result = plainText
		}
	}
	return result
}

func typeByExtension(p string) string {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == "" {
		return ""
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext))
	if err != nil {
		return ""
	}
	return t
}

func (b *Bridge) isText(fullPath string) bool {
	if b.fs == nil {
		return false
	}
	f, err := b.fs.Open(fullPath)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	head := buf[:n]
	if n == sniffLen {
		head = trimPartialRune(head)
	}

	if _, _, err := transform.Bytes(encoding.UTF8Validator, head); err != nil {
		b.logger.Debug("failed to read as unicode text", zap.String("path", fullPath))
		return false
	}
	return true
}

// trimPartialRune drops a trailing multi-byte sequence cut short by the
// read limit.
func trimPartialRune(p []byte) []byte {
	for i := 1; i < utf8.UTFMax && i <= len(p); i++ {
		c := p[len(p)-i]
		if utf8.RuneStart(c) {
			if !utf8.FullRune(p[len(p)-i:]) {
				return p[:len(p)-i]
			}
			return p
		}
	}
	return p
}
