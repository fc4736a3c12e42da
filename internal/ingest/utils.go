package ingest

import (
	"path"
	"strings"
	"time"

	"github.com/joseph-ayodele/bulk-resumes/constants"
)

// FolderTimeLayout is the timestamp suffix of a run folder.
const FolderTimeLayout = "20060102_150405"

// AllowedExt checks if a file extension is one of the resume formats.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden reports whether any element of an archive path is hidden.
func IsHidden(p string) bool {
	for _, part := range strings.Split(p, "/") {
		if strings.HasPrefix(part, ".") || part == "__MACOSX" {
			return true
		}
	}
	return false
}

// FolderName builds the storage folder for a run: the archive basename without
// its extension, followed by the local timestamp.
func FolderName(archiveName string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(archiveName, "\\", "/"))
	base = strings.TrimSuffix(base, path.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "batch"
	}
	return base + "_" + now.Format(FolderTimeLayout)
}
