package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// StudentRoster lists the student directories under the submission root.
// The summary view merges this with the aggregated groups so students with
// zero questions still show up. Dot directories are skipped.
func StudentRoster(workspace, submissionRoot string) ([]string, error) {
	dir := workspace
	if submissionRoot != "" && submissionRoot != "." {
		dir = filepath.Join(workspace, submissionRoot)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read submission directory %s: %w", dir, err)
	}

	var students []string
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			students = append(students, e.Name())
		}
	}
	sort.Strings(students)
	return students, nil
}
