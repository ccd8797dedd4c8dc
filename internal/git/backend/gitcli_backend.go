package backend

import (
	"context"
	"fmt"
	"strings"
)

func (g *gitCLI) CurrentBranch(ctx context.Context) (string, error) {
	ref, err := g.runGitCommand(ctx, []string{"symbolic-ref", "-q", "--short", "HEAD"}, true, "git symbolic-ref")
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(ref)
	if name == "" {
		// detached
		return "HEAD", nil
	}
	return name, nil
}

func (g *gitCLI) ListBranches(ctx context.Context) ([]Branch, error) {
	out, err := g.runGitCommand(
		ctx,
		[]string{
			"for-each-ref",
			"--format=%(HEAD)%1f%(refname)%1f%(objectname)%1f%(symref)",
			"refs/heads",
			"refs/remotes",
		},
		false,
		"git for-each-ref",
	)
	if err != nil {
		return nil, err
	}
	return parseBranches(out)
}

func parseBranches(out string) ([]Branch, error) {
	var branches []Branch
	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, fieldSep)
		if len(parts) != 4 {
			return nil, fmt.Errorf("unexpected for-each-ref output line: %q", rawLine)
		}
		current := strings.TrimSpace(parts[0]) == "*"
		refName := strings.TrimSpace(parts[1])
		hash := strings.TrimSpace(parts[2])
		if refName == "" || hash == "" {
			return nil, fmt.Errorf("unexpected for-each-ref output line: %q", rawLine)
		}
		if strings.TrimSpace(parts[3]) != "" {
			// symbolic refs such as origin/HEAD duplicate a real branch
			continue
		}
		switch {
		case strings.HasPrefix(refName, "refs/heads/"):
			name := strings.TrimPrefix(refName, "refs/heads/")
			if name == "" {
				continue
			}
			branches = append(branches, Branch{Name: name, Hash: hash, IsCurrent: current})
		case strings.HasPrefix(refName, "refs/remotes/"):
			name := strings.TrimPrefix(refName, "refs/remotes/")
			if name == "" {
				continue
			}
			branches = append(branches, Branch{Name: name, Hash: hash, IsRemote: true})
		}
	}
	return branches, nil
}

func (g *gitCLI) ListTags(ctx context.Context) ([]Ref, error) {
	out, err := g.runGitCommand(
		ctx,
		[]string{
			"show-ref",
			"--tags",
			"--dereference",
		},
		true,
		"git show-ref",
	)
	if err != nil {
		return nil, err
	}
	refs, err := parseRefsFromShowRef(out)
	if err != nil {
		return nil, err
	}
	tags := refs[:0]
	for _, ref := range refs {
		if ref.Kind == RefKindTag {
			tags = append(tags, ref)
		}
	}
	return tags, nil
}

func (g *gitCLI) ListRemotes(ctx context.Context) ([]string, error) {
	out, err := g.runGitCommand(ctx, []string{"remote"}, false, "git remote")
	if err != nil {
		return nil, err
	}
	var remotes []string
	for line := range strings.SplitSeq(out, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			remotes = append(remotes, name)
		}
	}
	return remotes, nil
}

func parseRefsFromShowRef(out string) ([]Ref, error) {
	type refEntry struct {
		hash string
		ref  string
	}

	peeledByTagRef := map[string]string{}
	var entries []refEntry

	for _, rawLine := range strings.Split(out, "\n") {
		line := strings.TrimRight(rawLine, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected show-ref output line: %q", rawLine)
		}
		hash, refName := parts[0], parts[1]
		if base, ok := strings.CutSuffix(refName, "^{}"); ok {
			if base != "" {
				peeledByTagRef[base] = hash
			}
			continue
		}
		entries = append(entries, refEntry{hash: hash, ref: refName})
	}

	var refs []Ref
	for _, entry := range entries {
		kind, short, ok := classifyRefName(entry.ref)
		if !ok {
			continue
		}
		hash := entry.hash
		if peeled := peeledByTagRef[entry.ref]; kind == RefKindTag && peeled != "" {
			// annotated tags point at the tag object; report the commit
			hash = peeled
		}
		refs = append(refs, Ref{Hash: hash, Kind: kind, Name: short})
	}
	return refs, nil
}

func classifyRefName(refName string) (RefKind, string, bool) {
	prefixes := []struct {
		prefix string
		kind   RefKind
	}{
		{"refs/tags/", RefKindTag},
		{"refs/heads/", RefKindBranch},
		{"refs/remotes/", RefKindRemoteBranch},
	}
	for _, p := range prefixes {
		if short, ok := strings.CutPrefix(refName, p.prefix); ok && short != "" {
			return p.kind, short, true
		}
	}
	return 0, "", false
}
