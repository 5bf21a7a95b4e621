package timetext

import (
	"fmt"
	"time"
)

var layouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Parse accepts RFC3339 instants as well as the short zone-less forms
// language models tend to emit in tool arguments.
func Parse(s string) (time.Time, error) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unsupported time format: %q", s)
}

func Display(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
