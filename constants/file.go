package constants

import "strings"

// AllowedExtensions holds the resume extensions accepted from an archive.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"doc":  {},
	"docx": {},
}

const (
	ContentTypePDF    = "application/pdf"
	ContentTypeDOC    = "application/msword"
	ContentTypeDOCX   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeBinary = "application/octet-stream"
)

var contentTypes = map[string]string{
	"pdf":  ContentTypePDF,
	"doc":  ContentTypeDOC,
	"docx": ContentTypeDOCX,
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ContentTypeFor returns the MIME type for an extension, falling back to octet-stream.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[NormalizeExt(ext)]; ok {
		return ct
	}
	return ContentTypeBinary
}
