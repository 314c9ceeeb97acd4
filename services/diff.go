package services

import (
	"sort"

	"github.com/bradenn/hwdemo/schemas"
	"github.com/pmezard/go-difflib/difflib"
)

// Diff compares two results field by field and returns a unified diff for each
// field that changed. Fields present on only one side diff against "".
func Diff(previous, current *schemas.SubmissionResult) (map[string]string, error) {
	names := map[string]struct{}{}
	for _, n := range previous.Names() {
		names[n] = struct{}{}
	}
	for _, n := range current.Names() {
		names[n] = struct{}{}
	}

	diffs := make(map[string]string)
	for n := range names {
		a, b := fieldOf(previous, n), fieldOf(current, n)
		if a == b {
			continue
		}
		ud := difflib.UnifiedDiff{
			A:        difflib.SplitLines(a),
			B:        difflib.SplitLines(b),
			FromFile: "previous/" + n,
			ToFile:   "current/" + n,
			Context:  3,
		}
		text, err := difflib.GetUnifiedDiffString(ud)
		if err != nil {
			return nil, err
		}
		diffs[n] = text
	}
	return diffs, nil
}

// DiffNames returns the keys of a Diff result in a stable order.
func DiffNames(d map[string]string) []string {
	names := make([]string, 0, len(d))
	for n := range d {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func fieldOf(r *schemas.SubmissionResult, name string) string {
	if r == nil {
		return ""
	}
	return r.Fields[name]
}
