package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeCategory(t *testing.T) {
	tests := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"good", CategoryGood, true},
		{" AVERAGE ", CategoryAverage, true},
		{"Unsuitable", CategoryUnsuitable, true},
		{"excellent", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalizeCategory(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCanonicalizeRemark(t *testing.T) {
	tests := []struct {
		in   string
		want SpecialRemark
		ok   bool
	}{
		{"northeast", RemarkNortheast, true},
		{"Other State", RemarkOtherState, true},
		{"other-state", RemarkOtherState, true},
		{"assam", "", false},
	}
	for _, tt := range tests {
		got, ok := CanonicalizeRemark(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestEnumValues(t *testing.T) {
	assert.Equal(t, []string{"unsuitable", "average", "good"}, CategoryValues())
	assert.Equal(t, []string{"northeast", "other_state"}, RemarkValues())
	assert.Len(t, NortheastStates, 7)
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, ContentTypePDF, ContentTypeFor(".PDF"))
	assert.Equal(t, ContentTypeDOC, ContentTypeFor("doc"))
	assert.Equal(t, ContentTypeDOCX, ContentTypeFor(".docx"))
	assert.Equal(t, ContentTypeBinary, ContentTypeFor(".txt"))
}

func TestDocumentStatusFailed(t *testing.T) {
	assert.False(t, DocumentSaved.Failed())
	assert.False(t, DocumentPending.Failed())
	assert.True(t, DocumentUploadFailed.Failed())
	assert.True(t, DocumentIncomplete.Failed())
}
