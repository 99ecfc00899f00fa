package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docuflow/docuflow/pkg/model"
)

func TestFormatDetails(t *testing.T) {
	details := FormatDetails(model.StateUnderReview, "alice")
	assert.Equal(t, "from=Under Review;author=alice", details)
	assert.Equal(t, "Under Review", DetailValue(details, DetailFrom))
	assert.Equal(t, "alice", DetailValue(details, DetailAuthor))
}

func TestDetailValue(t *testing.T) {
	cases := []struct {
		details string
		key     string
		want    string
	}{
		{"from=UnderReview;author=alice", "author", "alice"},
		{"author=alice", "author", "alice"},
		{"author=alice;note=late", "author", "alice"},
		{"from=Draft;author=", "author", ""},
		{"from=Draft", "author", ""},
		{"coauthor=mallory;author=alice", "author", "alice"},
		{"", "author", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DetailValue(tc.details, tc.key), tc.details)
	}
}
