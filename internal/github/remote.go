package github

import (
	"fmt"
	"regexp"
	"strings"
)

const DefaultHost = "github.com"

// Resolver extracts owner and repository from remote URLs that point at Host.
type Resolver struct {
	Host     string
	patterns []*regexp.Regexp
}

func NewResolver(host string) *Resolver {
	if host == "" {
		host = DefaultHost
	}
	h := `(?i:` + regexp.QuoteMeta(host) + `)`
	// The repository group is lazy so a trailing .git is only dropped when it
	// is a true suffix; names like user.github.io keep their dots.
	const tail = `/([^/]+)/([^/]+?)(?:\.git)?/?$`
	return &Resolver{
		Host: host,
		patterns: []*regexp.Regexp{
			regexp.MustCompile(`^https?://(?:[^@/]+@)?` + h + `(?::\d+)?` + tail),
			regexp.MustCompile(`^git@` + h + `:` + strings.TrimPrefix(tail, "/")),
			regexp.MustCompile(`^ssh://git@` + h + `(?::\d+)?` + tail),
			regexp.MustCompile(`^git://` + h + tail),
		},
	}
}

var defaultResolver = NewResolver(DefaultHost)

// ParseRemoteURL resolves a github.com remote URL.
func ParseRemoteURL(url string) (Remote, bool) {
	return defaultResolver.Resolve(url)
}

// Resolve returns false for URLs on other hosts or in unknown forms.
func (r *Resolver) Resolve(url string) (Remote, bool) {
	url = strings.TrimSpace(url)
	for _, re := range r.patterns {
		m := re.FindStringSubmatch(url)
		if m == nil {
			continue
		}
		if m[1] == "" || m[2] == "" || m[2] == ".git" {
			return Remote{}, false
		}
		return Remote{Owner: m[1], Repo: m[2]}, true
	}
	return Remote{}, false
}

// ResolveRemote is a convenience for callers holding a remote lookup, such as
// a go-git repository handle.
func (r *Resolver) ResolveRemote(lookup func(name string) (string, bool, error), name string) (Remote, error) {
	url, ok, err := lookup(name)
	if err != nil {
		return Remote{}, err
	}
	if !ok {
		return Remote{}, fmt.Errorf("remote %q not configured", name)
	}
	remote, ok := r.Resolve(url)
	if !ok {
		return Remote{}, fmt.Errorf("remote %q (%s) is not a %s repository", name, url, r.Host)
	}
	return remote, nil
}
