package ingest

import (
	"archive/zip"
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/bulk-resumes/internal/common"
)

type zipFile struct {
	name string
	body string
}

func buildZip(t *testing.T, files ...zipFile) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(f.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestReadArchive_FiltersAndKeepsOrder(t *testing.T) {
	data := buildZip(t,
		zipFile{"b.docx", "docx-bytes"},
		zipFile{"notes.txt", "ignored"},
		zipFile{"cv/A.PDF", "pdf-bytes"},
		zipFile{"photo.png", "ignored"},
		zipFile{"old.doc", "doc-bytes"},
		zipFile{"folder/", ""},
	)

	entries, stats, err := ReadArchive(data, ReadOptions{})
	require.NoError(t, err)

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"b.docx", "cv/A.PDF", "old.doc"}, names)
	assert.Equal(t, "pdf-bytes", string(entries[1].Data))
	assert.Equal(t, "cv/A.PDF", entries[1].ObjectName())
	assert.Equal(t, ArchiveStats{Scanned: 5, Matched: 3, Skipped: 2}, stats)
}

func TestReadArchive_NoMatches(t *testing.T) {
	data := buildZip(t, zipFile{"readme.md", "x"}, zipFile{"img.jpg", "y"})

	entries, stats, err := ReadArchive(data, ReadOptions{})
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.EqualValues(t, 0, stats.Matched)
}

func TestReadArchive_Invalid(t *testing.T) {
	_, _, err := ReadArchive([]byte("definitely not a zip"), ReadOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrInvalidArchive)
	assert.Equal(t, "INVALID_ARCHIVE", common.ErrorCode(err, ""))
}

func TestReadArchive_SkipHidden(t *testing.T) {
	data := buildZip(t,
		zipFile{"a.pdf", "a"},
		zipFile{"__MACOSX/._a.pdf", "fork"},
		zipFile{".hidden.docx", "h"},
	)

	all, _, err := ReadArchive(data, ReadOptions{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	visible, stats, err := ReadArchive(data, ReadOptions{SkipHidden: true})
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "a.pdf", visible[0].Name)
	assert.EqualValues(t, 2, stats.Skipped)
}

func TestFolderName(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	tests := []struct {
		in   string
		want string
	}{
		{"resumes.zip", "resumes_20240309_140507"},
		{"/tmp/uploads/March Batch.zip", "March Batch_20240309_140507"},
		{`C:\Users\hr\batch.v2.zip`, "batch.v2_20240309_140507"},
		{"", "batch_20240309_140507"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FolderName(tt.in, at), tt.in)
	}
}

func TestAllowedExt(t *testing.T) {
	assert.True(t, AllowedExt(".pdf"))
	assert.True(t, AllowedExt("DOCX"))
	assert.True(t, AllowedExt(".Doc"))
	assert.False(t, AllowedExt(".txt"))
	assert.False(t, AllowedExt(""))
}

func TestArchiveEntry_ObjectName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a.pdf", "a.pdf"},
		{"alice/cv.pdf", "alice/cv.pdf"},
		{"/abs/cv.pdf", "abs/cv.pdf"},
		{"../../etc/cv.pdf", "etc/cv.pdf"},
		{"x/./y//cv.docx", "x/y/cv.docx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ArchiveEntry{Name: tt.in}.ObjectName(), tt.in)
	}
}
