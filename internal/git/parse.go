package git

import (
	"strings"

	gitbackend "github.com/thiagokokada/githistory/internal/git/backend"
)

// parseCommit maps one raw log record into a Commit.
func parseCommit(rec *gitbackend.Record, refs RefClassifier) Commit {
	parents := strings.Fields(rec.Parents)
	if parents == nil {
		parents = []string{}
	}
	return Commit{
		Hash:         rec.Hash,
		ShortHash:    rec.ShortHash,
		Subject:      rec.Subject,
		Body:         rec.Body,
		Author:       Author{Name: rec.AuthorName, Email: rec.AuthorEmail},
		AuthoredDate: rec.AuthorDate,
		ParentHashes: parents,
		Refs:         refs.Classify(rec.Decoration),
	}
}
