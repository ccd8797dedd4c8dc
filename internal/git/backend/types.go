package backend

// Record is one raw commit as emitted by the log query, before it is mapped
// into the history model.
type Record struct {
	Hash        string
	ShortHash   string
	AuthorName  string
	AuthorEmail string
	AuthorDate  string // strict ISO-8601 with offset (%aI)
	Parents     string // space separated
	Decoration  string // e.g. "HEAD -> main, tag: v1.0, origin/main"
	Subject     string
	Body        string
}

// LogOptions selects which commits a log or count query walks.
type LogOptions struct {
	// MaxCount limits the number of records; zero means no limit.
	MaxCount int
	Skip     int
	// FirstParent follows only the first parent of merge commits.
	FirstParent bool
	// Since and Until are passed verbatim to git (--since/--until).
	Since string
	Until string
}

type RefKind uint8

const (
	RefKindBranch RefKind = iota
	RefKindRemoteBranch
	RefKindTag
)

type Ref struct {
	Hash string
	Kind RefKind
	Name string // short name: main, origin/main, v1
}

type Branch struct {
	Name      string
	Hash      string
	IsRemote  bool
	IsCurrent bool
}
