package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
)

// ArchiveEntry is one resume pulled out of an uploaded archive.
type ArchiveEntry struct {
	Name string // path inside the archive, as stored
	Data []byte
}

// ObjectName is the entry path inside the archive, cleaned so it cannot climb
// out of the run folder. Entries with the same file name in different
// directories keep distinct names.
func (e ArchiveEntry) ObjectName() string {
	return strings.TrimPrefix(path.Clean("/"+e.Name), "/")
}

// ArchiveStats summarizes an archive read.
type ArchiveStats struct {
	Scanned uint32
	Matched uint32
	Skipped uint32
}

// ReadOptions tunes ReadArchive.
type ReadOptions struct {
	// SkipHidden drops dot-files and __MACOSX resource forks.
	SkipHidden bool
}

// ReadArchive returns the resume entries of a zip archive in archive order.
// A payload that is not a zip fails with common.ErrInvalidArchive; an archive
// without resumes returns no entries and no error.
func ReadArchive(data []byte, opts ReadOptions) ([]ArchiveEntry, ArchiveStats, error) {
	var stats ArchiveStats
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, stats, common.NewAppError("INVALID_ARCHIVE", "open zip", fmt.Errorf("%w: %v", common.ErrInvalidArchive, err))
	}

	entries := make([]ArchiveEntry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		stats.Scanned++
		if !AllowedExt(path.Ext(f.Name)) {
			stats.Skipped++
			continue
		}
		if opts.SkipHidden && IsHidden(f.Name) {
			stats.Skipped++
			continue
		}
		body, err := readEntry(f)
		if err != nil {
			return nil, stats, common.NewAppError("INVALID_ARCHIVE", "read "+f.Name, fmt.Errorf("%w: %v", common.ErrInvalidArchive, err))
		}
		entries = append(entries, ArchiveEntry{Name: f.Name, Data: body})
		stats.Matched++
	}
	return entries, stats, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(rc)
}
