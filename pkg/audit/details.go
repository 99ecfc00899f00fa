package audit

import (
	"strings"

	"github.com/docuflow/docuflow/pkg/model"
)

const (
	DetailFrom   = "from"
	DetailAuthor = "author"
)

// FormatDetails encodes the prior state and document author in the
// semicolon delimited key=value form stored on audit records.
func FormatDetails(from model.WorkflowState, author string) string {
	return DetailFrom + "=" + string(from) + ";" + DetailAuthor + "=" + author
}

// DetailValue returns the value stored under key, or "" when absent.
func DetailValue(details, key string) string {
	for _, pair := range strings.Split(details, ";") {
		k, v, ok := strings.Cut(pair, "=")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
