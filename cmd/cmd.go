package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thiagokokada/githistory/internal/buildinfo"
	"github.com/thiagokokada/githistory/internal/cache"
	"github.com/thiagokokada/githistory/internal/config"
	"github.com/thiagokokada/githistory/internal/git"
	gitbackend "github.com/thiagokokada/githistory/internal/git/backend"
	"github.com/thiagokokada/githistory/internal/github"
	"github.com/thiagokokada/githistory/internal/progress"
	"github.com/thiagokokada/githistory/internal/server"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

type app struct {
	configPath string
	repoPath   string
	verbose    bool
	jsonOutput bool
	cfg        config.Config
	history    *git.Service
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCmd(&app{history: git.New()})
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "githistory",
		Short:         "Browse git history and the GitHub pull requests and issues behind it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to a TOML configuration file")
	flags.StringVarP(&a.repoPath, "repo", "C", ".", "repository path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVar(&a.jsonOutput, "json", false, "print JSON instead of text")

	root.AddCommand(
		newServeCmd(a),
		newLogCmd(a),
		newStreamCmd(a),
		newShowCmd(a),
		newEnrichCmd(a),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		// The version does not depend on configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, buildinfo.String())
			if v, err := gitbackend.GitVersion(); err != nil {
				fmt.Fprintf(out, "git: unusable, need >= %s: %v\n", gitbackend.MinGitVersion(), err)
			} else {
				fmt.Fprintln(out, v)
			}
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP and websocket API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			enricher, cleanup, err := newEnricher(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()
			srv := server.New(server.Options{
				History:   a.history,
				Enricher:  enricher,
				PageSize:  a.cfg.History.DefaultPageSize,
				ChunkSize: a.cfg.History.DefaultChunkSize,
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from configuration)")
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	var opts git.PageOptions
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print one page of the history across all refs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.MaxCount <= 0 {
				opts.MaxCount = a.cfg.History.DefaultPageSize
			}
			page, err := a.history.GetCommitsPaginated(cmd.Context(), a.repoPath, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSON(out, page)
			}
			for _, c := range page.Commits {
				printOneline(out, c)
			}
			more := ""
			if page.HasMore {
				more = fmt.Sprintf(", next page with --skip %d", opts.Skip+len(page.Commits))
			}
			fmt.Fprintf(out, "-- %d-%d of %d%s\n", opts.Skip+1, opts.Skip+len(page.Commits), page.TotalCount, more)
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&opts.MaxCount, "max-count", "n", 0, "commits per page (default from configuration)")
	f.IntVar(&opts.Skip, "skip", 0, "commits to skip")
	f.BoolVar(&opts.FirstParentOnly, "first-parent", false, "follow only the first parent of merges")
	f.StringVar(&opts.Since, "since", "", "only commits more recent than this date")
	f.StringVar(&opts.Until, "until", "", "only commits older than this date")
	return cmd
}

func newStreamCmd(a *app) *cobra.Command {
	var opts git.StreamOptions
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Print the whole history in batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.ChunkSize <= 0 {
				opts.ChunkSize = a.cfg.History.DefaultChunkSize
			}
			out := cmd.OutOrStdout()
			batches := 0
			for batch, err := range a.history.StreamCommits(cmd.Context(), a.repoPath, opts) {
				if err != nil {
					return err
				}
				batches++
				if a.jsonOutput {
					if err := writeJSON(out, batch); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(out, "-- batch %d (%d commits)\n", batches, len(batch))
				for _, c := range batch {
					printOneline(out, c)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "commits per batch (default from configuration)")
	cmd.Flags().BoolVar(&opts.FirstParentOnly, "first-parent", false, "follow only the first parent of merges")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <commit>",
		Short: "Show one commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.history.GetCommitDetails(cmd.Context(), a.repoPath, args[0])
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("commit %s not found", args[0])
			}
			out := cmd.OutOrStdout()
			if a.jsonOutput {
				return writeJSON(out, c)
			}
			fmt.Fprintf(out, "commit %s%s\n", c.Hash, formatRefs(c.Refs))
			if len(c.ParentHashes) > 1 {
				fmt.Fprintf(out, "Merge:  %s\n", strings.Join(c.ParentHashes, " "))
			}
			fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
			fmt.Fprintf(out, "Date:   %s\n\n", c.AuthoredDate)
			fmt.Fprintf(out, "    %s\n", c.Subject)
			if body := strings.TrimSpace(c.Body); body != "" {
				fmt.Fprintln(out)
				for line := range strings.SplitSeq(body, "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}
}

func newEnrichCmd(a *app) *cobra.Command {
	var (
		target     string
		remoteName string
	)
	cmd := &cobra.Command{
		Use:   "enrich <commit>",
		Short: "Find the pull requests and issues behind a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			remote, err := resolveRemote(a.repoPath, target, remoteName)
			if err != nil {
				return err
			}
			c, err := a.history.GetCommitDetails(ctx, a.repoPath, args[0])
			if err != nil {
				return err
			}
			if c == nil {
				return fmt.Errorf("commit %s not found", args[0])
			}
			enricher, cleanup, err := newEnricher(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			out := cmd.OutOrStdout()
			var reporter progress.Reporter = progress.Discard
			if !a.jsonOutput {
				reporter = progress.Func(func(ev progress.Event) {
					if ev.Terminal() {
						fmt.Fprintf(out, "%s\n\n", ev.Message)
						return
					}
					fmt.Fprintf(out, "[%s] %s: %s\n", ev.Status, ev.Step, ev.Message)
				})
			}
			result, err := enricher.Enrich(ctx, remote.Owner, remote.Repo, *c, reporter)
			if err != nil {
				return err
			}
			if a.jsonOutput {
				return writeJSON(out, result)
			}
			for _, pr := range result.PullRequests {
				fmt.Fprintf(out, "PR #%d [%s] %s (%s) %s\n", pr.Number, pr.State, pr.Title, pr.AuthorLogin, pr.URL)
			}
			for _, issue := range result.LinkedIssues {
				labels := ""
				if len(issue.Labels) > 0 {
					labels = " {" + strings.Join(issue.Labels, ", ") + "}"
				}
				fmt.Fprintf(out, "Issue #%d [%s] %s%s %s\n", issue.Number, issue.State, issue.Title, labels, issue.URL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "github", "", "owner/repo on GitHub (default from the remote)")
	cmd.Flags().StringVar(&remoteName, "remote", "origin", "remote used to find the GitHub repository")
	return cmd
}

func resolveRemote(repoPath, target, remoteName string) (github.Remote, error) {
	if target != "" {
		owner, repo, ok := strings.Cut(target, "/")
		if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
			return github.Remote{}, fmt.Errorf("--github must be owner/repo, got %q", target)
		}
		return github.Remote{Owner: owner, Repo: repo}, nil
	}
	handle, err := git.OpenRepository(repoPath)
	if err != nil {
		return github.Remote{}, err
	}
	return github.NewResolver("").ResolveRemote(handle.RemoteURL, remoteName)
}

// newEnricher wires the GitHub client to the configured cache tier. The
// returned cleanup releases the cache backend.
func newEnricher(ctx context.Context, cfg config.Config) (*github.Enricher, func(), error) {
	client, err := github.NewClient(github.ClientOptions{
		APIURL:    cfg.GitHub.APIURL,
		Token:     cfg.GitHub.Token,
		Timeout:   cfg.GitHub.Timeout,
		UserAgent: buildinfo.UserAgent(),
	})
	if err != nil {
		return nil, nil, err
	}
	cc := cfg.Cache
	if cc.Backend != config.CacheBackendRedis {
		return github.NewEnricher(client,
			cache.NewTTL[[]github.PullRequest](cc.PRCapacity, cc.PRTTL),
			cache.NewTTL[github.Issue](cc.IssueCapacity, cc.IssueTTL),
		), func() {}, nil
	}
	rdb, err := cache.NewRedisClient(ctx, cc.Redis())
	if err != nil {
		return nil, nil, err
	}
	slog.Info("using redis cache", slog.String("addr", cc.RedisAddr))
	enricher := github.NewEnricher(client,
		cache.NewRedis[[]github.PullRequest](rdb, cc.RedisPrefix+"pr:", cc.PRTTL),
		cache.NewRedis[github.Issue](rdb, cc.RedisPrefix+"issue:", cc.IssueTTL),
	)
	return enricher, func() {
		if err := rdb.Close(); err != nil {
			slog.Error("redis close", slog.Any("error", err))
		}
	}, nil
}

func printOneline(out io.Writer, c git.Commit) {
	fmt.Fprintf(out, "%s %s %s%s %s\n", c.ShortHash, c.AuthoredDate, c.Author.Name, formatRefs(c.Refs), c.Subject)
}

func formatRefs(refs []git.RefInfo) string {
	if len(refs) == 0 {
		return ""
	}
	names := make([]string, 0, len(refs))
	for _, ref := range refs {
		switch {
		case ref.IsHead:
			names = append(names, "HEAD -> "+ref.Name)
		case ref.Kind == git.RefTag:
			names = append(names, "tag: "+ref.Name)
		default:
			names = append(names, ref.Name)
		}
	}
	return " (" + strings.Join(names, ", ") + ")"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
