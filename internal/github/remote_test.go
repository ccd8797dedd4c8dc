package github

import "testing"

func TestParseRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url    string
		want   Remote
		wantOK bool
	}{
		{url: "https://github.com/acme/widgets.git", want: Remote{"acme", "widgets"}, wantOK: true},
		{url: "https://github.com/acme/widgets", want: Remote{"acme", "widgets"}, wantOK: true},
		{url: "https://token@github.com/acme/widgets/", want: Remote{"acme", "widgets"}, wantOK: true},
		{url: "git@github.com:acme/my.repo.git", want: Remote{"acme", "my.repo"}, wantOK: true},
		{url: "git@github.com:user/user.github.io", want: Remote{"user", "user.github.io"}, wantOK: true},
		{url: "ssh://git@github.com/acme/widgets.git", want: Remote{"acme", "widgets"}, wantOK: true},
		{url: "git://github.com/acme/widgets.git", want: Remote{"acme", "widgets"}, wantOK: true},
		{url: "https://GitHub.com/Acme/Widgets.git", want: Remote{"Acme", "Widgets"}, wantOK: true},
		{url: "https://github.com/acme/tool.gitx", want: Remote{"acme", "tool.gitx"}, wantOK: true},
		{url: "https://github.com/acme/.git"},
		{url: "https://gitlab.com/acme/widgets.git"},
		{url: "git@gitlab.com:acme/widgets.git"},
		{url: "https://github.com.evil.example/acme/widgets"},
		{url: "https://github.com/acme"},
		{url: "/srv/git/widgets.git"},
		{url: ""},
	}
	for _, tt := range tests {
		got, ok := ParseRemoteURL(tt.url)
		if ok != tt.wantOK || got != tt.want {
			t.Fatalf("ParseRemoteURL(%q) = %+v, %v; want %+v, %v", tt.url, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestResolverCustomHost(t *testing.T) {
	t.Parallel()

	r := NewResolver("git.example.com")
	if got, ok := r.Resolve("git@git.example.com:team/app.git"); !ok || got != (Remote{"team", "app"}) {
		t.Fatalf("Resolve = %+v, %v", got, ok)
	}
	if _, ok := r.Resolve("git@github.com:team/app.git"); ok {
		t.Fatal("resolved a URL on another host")
	}
}

func TestResolveRemote(t *testing.T) {
	t.Parallel()

	remotes := map[string]string{"origin": "git@github.com:acme/widgets.git", "mirror": "/srv/mirror.git"}
	lookup := func(name string) (string, bool, error) {
		url, ok := remotes[name]
		return url, ok, nil
	}
	r := NewResolver("")

	got, err := r.ResolveRemote(lookup, "origin")
	if err != nil || got.String() != "acme/widgets" {
		t.Fatalf("ResolveRemote(origin) = %v, %v", got, err)
	}
	if _, err := r.ResolveRemote(lookup, "mirror"); err == nil {
		t.Fatal("expected error for a non-GitHub remote")
	}
	if _, err := r.ResolveRemote(lookup, "missing"); err == nil {
		t.Fatal("expected error for a missing remote")
	}
}
