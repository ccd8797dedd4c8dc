package github

import (
	"regexp"
	"slices"
	"strconv"
	"unicode"
	"unicode/utf8"
)

var (
	closingRefPattern = regexp.MustCompile(`(?i)\b(?:fix(?:e[sd])?|close[sd]?|resolve[sd]?):?\s+#(\d+)\b`)
	hashRefPattern    = regexp.MustCompile(`#(\d+)`)
)

// ExtractIssueReferences returns the issue numbers mentioned in a commit
// message, deduplicated and sorted. Both closing keywords ("Fixes #3") and
// bare references ("see #4.") count.
func ExtractIssueReferences(subject, body string) []int {
	text := subject + "\n" + body
	seen := map[int]struct{}{}
	add := func(digits string) {
		n, err := strconv.Atoi(digits)
		if err != nil || n <= 0 {
			return
		}
		seen[n] = struct{}{}
	}
	for _, m := range closingRefPattern.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, loc := range hashRefPattern.FindAllStringSubmatchIndex(text, -1) {
		if !bareRefBoundary(text, loc[0], loc[1]) {
			continue
		}
		add(text[loc[2]:loc[3]])
	}
	refs := make([]int, 0, len(seen))
	for n := range seen {
		refs = append(refs, n)
	}
	slices.Sort(refs)
	return refs
}

// bareRefBoundary reports whether text[start:end] stands alone: preceded by
// the start of text or whitespace, followed by the end of text, whitespace or
// punctuation.
func bareRefBoundary(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsSpace(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if !unicode.IsSpace(r) && !unicode.IsPunct(r) {
			return false
		}
	}
	return true
}
