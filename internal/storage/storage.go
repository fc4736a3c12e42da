package storage

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/joseph-ayodele/bulk-resumes/constants"
)

// Uploader stores a raw resume and returns a URL the parsing service can fetch.
type Uploader interface {
	Upload(ctx context.Context, folder, filename string, data []byte) (string, error)
}

// ObjectKey joins the run folder and the archive filename into the object key.
func ObjectKey(folder, filename string) string {
	folder = strings.Trim(folder, "/")
	filename = strings.TrimLeft(filename, "/")
	if folder == "" {
		return filename
	}
	return folder + "/" + filename
}

// ContentType picks the MIME type from the filename's extension.
func ContentType(filename string) string {
	return constants.ContentTypeFor(path.Ext(filename))
}

// PublicObjectURL builds base/bucket/key with every key segment escaped.
func PublicObjectURL(base, bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(base, "/") + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}
