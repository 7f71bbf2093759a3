package imap

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inboxkit/mailsync/internal/models"
)

func TestBuildSearchCriteria_UIDRangeAboveCursor(t *testing.T) {
	filter := models.EmailFilterParameters{AfterUID: 42}

	criteria := buildSearchCriteria(filter, false)

	// lower bound is exclusive, the range starts one past the cursor
	assert.NotNil(t, criteria.Uid)
	assert.Equal(t, "43:*", criteria.Uid.String())
}

func TestBuildSearchCriteria_ZeroCursorMatchesWholeFolder(t *testing.T) {
	criteria := buildSearchCriteria(models.EmailFilterParameters{}, false)

	assert.Nil(t, criteria.Uid)
	assert.Empty(t, criteria.Header)
}

func TestBuildSearchCriteria_LoopbackSkipsUIDRange(t *testing.T) {
	filter := models.EmailFilterParameters{AfterUID: 42}

	criteria := buildSearchCriteria(filter, true)

	assert.Nil(t, criteria.Uid)
}

func TestBuildSearchCriteria_SubjectAndUIDCombined(t *testing.T) {
	filter := models.EmailFilterParameters{AfterUID: 10, Subject: "invoice"}

	criteria := buildSearchCriteria(filter, false)

	assert.NotNil(t, criteria.Uid)
	assert.Equal(t, "11:*", criteria.Uid.String())
	assert.Equal(t, "invoice", criteria.Header.Get("Subject"))
}

func TestFilterUIDsAfter(t *testing.T) {
	tests := []struct {
		name     string
		uids     []uint32
		after    uint32
		expected []uint32
	}{
		{
			name:     "zero bound keeps everything",
			uids:     []uint32{1, 2, 3},
			after:    0,
			expected: []uint32{1, 2, 3},
		},
		{
			name:     "bound is exclusive",
			uids:     []uint32{3, 5, 7},
			after:    5,
			expected: []uint32{7},
		},
		{
			name:     "all below bound",
			uids:     []uint32{1, 2},
			after:    10,
			expected: []uint32{},
		},
		{
			name:     "unordered input preserved",
			uids:     []uint32{9, 2, 8, 1},
			after:    2,
			expected: []uint32{9, 8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, filterUIDsAfter(tt.uids, tt.after))
		})
	}
}
