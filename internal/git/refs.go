package git

import "strings"

// defaultRemotes is used when the repository's remotes are unknown.
var defaultRemotes = []string{"origin", "upstream"}

// RefClassifier turns a decoration string ("HEAD -> main, tag: v1.0,
// origin/main") into RefInfo entries. A token counts as remote-tracking when it
// starts with one of Remotes followed by a slash.
type RefClassifier struct {
	Remotes []string
}

func NewRefClassifier(remotes ...string) RefClassifier {
	if len(remotes) == 0 {
		remotes = defaultRemotes
	}
	return RefClassifier{Remotes: remotes}
}

func (c RefClassifier) Classify(decoration string) []RefInfo {
	refs := []RefInfo{}
	for token := range strings.SplitSeq(decoration, ",") {
		token = strings.TrimSpace(token)
		switch {
		case token == "" || token == "HEAD":
			continue
		case strings.HasPrefix(token, "HEAD -> "):
			name := strings.TrimSpace(strings.TrimPrefix(token, "HEAD -> "))
			if name == "" {
				continue
			}
			refs = append(refs, RefInfo{Name: name, Kind: RefBranch, IsHead: true})
		case strings.HasPrefix(token, "tag: "):
			refs = append(refs, RefInfo{Name: strings.TrimSpace(strings.TrimPrefix(token, "tag: ")), Kind: RefTag})
		case c.isRemote(token):
			refs = append(refs, RefInfo{Name: token, Kind: RefRemote})
		default:
			refs = append(refs, RefInfo{Name: token, Kind: RefBranch})
		}
	}
	return refs
}

func (c RefClassifier) isRemote(token string) bool {
	for _, remote := range c.Remotes {
		if remote != "" && strings.HasPrefix(token, remote+"/") {
			return true
		}
	}
	return false
}
