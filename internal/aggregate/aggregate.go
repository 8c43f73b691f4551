// Package aggregate groups question records by student, assigns stable
// labels, and computes the statistics the views and exporters share.
package aggregate

import (
	"sort"
	"strconv"

	"github.com/gvqlc/qlc/internal/identity"
	"github.com/gvqlc/qlc/internal/model"
)

// IndexedRecord pairs a question record with its index in the sequence
// passed to Run, so labels can be traced back to store positions.
type IndexedRecord struct {
	Index  int
	Record model.QuestionRecord
}

// Group is one student's ordered questions. Records keep the original
// store order; Student is the raw extracted identity (pre-mapping) and
// DisplayName the mapped presentation name.
type Group struct {
	Student     string
	DisplayName string
	Records     []IndexedRecord
	Count       int
}

// Result is one aggregation pass. Labels is keyed by the record's index
// in the input sequence. Mode is -1 when there are no groups.
type Result struct {
	Groups []Group
	Mode   int
	Labels map[int]string
}

// Run groups records by extracted student identity and assigns labels of
// the form <studentOrdinal><letter> ("1a", "1b", "2a", ...). Grouping keys
// on the raw identity so two raw names mapping to the same display name
// stay distinct. Group order is a case-sensitive sort of raw identities;
// within a group the input order is preserved. The input slice is never
// reordered. Labels are recomputed on every pass and never persisted.
func Run(records []model.QuestionRecord, rootMarker string, nameMapping map[string]string) Result {
	byStudent := make(map[string][]IndexedRecord)
	for i, rec := range records {
		student := identity.Extract(rec.FilePath, rootMarker, nil)
		byStudent[student] = append(byStudent[student], IndexedRecord{Index: i, Record: rec})
	}

	students := make([]string, 0, len(byStudent))
	for s := range byStudent {
		students = append(students, s)
	}
	sort.Strings(students)

	result := Result{
		Mode:   modeOfCounts(byStudent),
		Labels: make(map[int]string),
	}

	for ordinal, student := range students {
		recs := byStudent[student]
		for qIndex, ir := range recs {
			result.Labels[ir.Index] = Label(ordinal+1, qIndex)
		}
		result.Groups = append(result.Groups, Group{
			Student:     student,
			DisplayName: identity.MapName(student, nameMapping),
			Records:     recs,
			Count:       len(recs),
		})
	}

	return result
}

// modeOfCounts returns the most frequent group size. Ties resolve to the
// larger size; this choice feeds the "exactly typical" severity bucket.
// Returns -1 when there are no groups.
func modeOfCounts(byStudent map[string][]IndexedRecord) int {
	if len(byStudent) == 0 {
		return -1
	}
	freq := make(map[int]int)
	for _, recs := range byStudent {
		freq[len(recs)]++
	}
	mode, best := -1, 0
	for count, f := range freq {
		if f > best || (f == best && count > mode) {
			mode, best = count, f
		}
	}
	return mode
}

// Label builds the human-facing question label for the given 1-based
// student ordinal and 0-based question index. Question indexes past 'z'
// wrap bijectively into multi-letter suffixes ("aa", "ab", ...).
func Label(studentOrdinal, questionIndex int) string {
	letters := ""
	n := questionIndex
	for {
		letters = string(rune('a'+n%26)) + letters
		n = n/26 - 1
		if n < 0 {
			break
		}
	}
	return strconv.Itoa(studentOrdinal) + letters
}

// Filter returns the records for which keep is true, preserving order.
// Exporters use it to drop excluded records before aggregation.
func Filter(records []model.QuestionRecord, keep func(model.QuestionRecord) bool) []model.QuestionRecord {
	out := make([]model.QuestionRecord, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Included is the keep-predicate for records that belong in generated
// artifacts.
func Included(r model.QuestionRecord) bool {
	return !r.ExcludeFromQuiz
}
