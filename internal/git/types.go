package git

type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type RefKind string

const (
	RefBranch RefKind = "branch"
	RefTag    RefKind = "tag"
	RefRemote RefKind = "remote"
)

// RefInfo is one entry of a commit's decoration.
type RefInfo struct {
	Name   string  `json:"name"`
	Kind   RefKind `json:"type"`
	IsHead bool    `json:"isHead"`
}

type Commit struct {
	Hash      string `json:"hash"`
	ShortHash string `json:"shortHash"`
	Subject   string `json:"message"`
	Body      string `json:"body"`
	Author    Author `json:"author"`
	// AuthoredDate is ISO-8601 with the author's UTC offset, as git reports it.
	AuthoredDate string `json:"date"`
	// ParentHashes keeps git's order; the first entry is the primary ancestor.
	ParentHashes []string  `json:"parents"`
	Refs         []RefInfo `json:"refs"`
}

type Branch struct {
	Name           string `json:"name"`
	HeadCommitHash string `json:"commit"`
	IsRemote       bool   `json:"isRemote"`
	IsCurrent      bool   `json:"current"`
}

type Tag struct {
	Name       string `json:"name"`
	CommitHash string `json:"commit"`
}

// Repository is the aggregate produced by a full load. Commits are most
// recent first.
type Repository struct {
	Path              string   `json:"path"`
	DisplayName       string   `json:"name"`
	CurrentBranchName string   `json:"currentBranch"`
	Commits           []Commit `json:"commits"`
	Branches          []Branch `json:"branches"`
	Tags              []Tag    `json:"tags"`
}

type PaginatedResult struct {
	Commits    []Commit `json:"commits"`
	TotalCount int      `json:"totalCount"`
	HasMore    bool     `json:"hasMore"`
}

type PageOptions struct {
	MaxCount        int
	Skip            int
	FirstParentOnly bool
	// Since and Until accept anything git's --since/--until accept.
	Since string
	Until string
}

type StreamOptions struct {
	ChunkSize       int
	FirstParentOnly bool
}
