package github

import (
	"slices"
	"testing"
)

func TestExtractIssueReferences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		subject string
		body    string
		want    []int
	}{
		{subject: "Fixes #12 and see #7, also #12", want: []int{7, 12}},
		{subject: "Add parser (closes #4)", want: []int{4}},
		{subject: "Resolved #30", body: "Fixed #2\nclose #5", want: []int{2, 5, 30}},
		{subject: "Merge pull request #88 from acme/topic", want: []int{88}},
		{subject: "Bump", body: "#3\n#1.", want: []int{1, 3}},
		{subject: "Refs #9!", want: []int{9}},
		{subject: "Color #ff0000 and abc#12 and #12abc", want: []int{}},
		{subject: "Support (#34)", want: []int{}},
		{subject: "#0 is not an issue", want: []int{}},
		{subject: "", body: "", want: []int{}},
		{subject: "Fixes: #21", want: []int{21}},
	}
	for _, tt := range tests {
		got := ExtractIssueReferences(tt.subject, tt.body)
		if got == nil || !slices.Equal(got, tt.want) {
			t.Fatalf("ExtractIssueReferences(%q, %q) = %#v, want %v", tt.subject, tt.body, got, tt.want)
		}
	}
}

func TestExtractIssueReferencesSortedUnique(t *testing.T) {
	t.Parallel()

	got := ExtractIssueReferences("fix #9 fixes #9 #9 closes #1", "resolves #5 #1")
	if !slices.IsSorted(got) || len(slices.Compact(slices.Clone(got))) != len(got) {
		t.Fatalf("ExtractIssueReferences = %v, want sorted and unique", got)
	}
	if !slices.Equal(got, []int{1, 5, 9}) {
		t.Fatalf("ExtractIssueReferences = %v, want [1 5 9]", got)
	}
}
