// Package identity maps submission file paths to student identifiers.
//
// A submission layout looks like <submissionRoot>/<student>/<files...>;
// the extractor scans the path for the configured root marker and takes
// the segment that follows it.
package identity

import "strings"

// Unknown is returned when the root marker does not appear in the path.
// Callers that filter strictly compare against this sentinel; callers that
// aggregate for export keep the record under the sentinel group.
const Unknown = "unknown_user"

func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == '/' || r == '\\'
	})
}

// Extract returns the student identifier for filePath.
//
// With an empty rootMarker the first path segment is used (a documented
// fallback heuristic for workspaces whose root is the submission root).
// Otherwise the segments are scanned for a case-insensitive match of
// rootMarker and the following segment is the identifier; no match yields
// Unknown. When nameMapping contains the raw identifier the mapped display
// value is substituted. Pure function of its inputs.
func Extract(filePath, rootMarker string, nameMapping map[string]string) string {
	parts := splitPath(filePath)
	if len(parts) == 0 {
		return Unknown
	}

	var student string
	if rootMarker == "" || rootMarker == "." {
		student = parts[0]
	} else {
		student = Unknown
		for i := 0; i < len(parts)-1; i++ {
			if strings.EqualFold(parts[i], rootMarker) {
				student = parts[i+1]
				break
			}
		}
	}

	if mapped, ok := nameMapping[student]; ok {
		return mapped
	}
	return student
}

// MapName applies the display-name mapping to a raw identifier,
// returning the identifier unchanged when no mapping entry exists.
func MapName(student string, nameMapping map[string]string) string {
	if mapped, ok := nameMapping[student]; ok {
		return mapped
	}
	return student
}
