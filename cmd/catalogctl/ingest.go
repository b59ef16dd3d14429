package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kubeflow/data-catalog/pkg/catalog/providers"
	"github.com/kubeflow/data-catalog/pkg/catalog/providers/git"
)

type ingestOptions struct {
	file         string
	gitURL       string
	gitBranch    string
	gitPath      string
	gitToken     string
	gitShallow   bool
	watch        bool
	syncInterval time.Duration
}

func newEntityIngestCmd(opts *globalOptions) *cobra.Command {
	in := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Ingest data entities, task runs and severities",
		Long: `Ingest data entities, task runs and severities from a YAML document.

Documents are read from a file (-f, "-" for stdin) or from every file
matching --git-path in a Git repository (--git-url). With --watch the
repository is polled and re-ingested whenever the branch moves.

Example document:
  entities:
    - oddrn: //db/orders
      name: orders
      type: TABLE
      roles: [DATA_SET]
      attributes:
        DATA_SET: {rows_count: 42, fields_count: 3}
  runs:
    - id: run-1
      taskOddrn: //job/etl
      status: SUCCESS
      startTime: 2024-01-01T00:00:00Z
  severities:
    - {dataset: //db/orders, test: //dq/not-null, severity: MAJOR}`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, _ []string) error {
			switch {
			case in.file != "" && in.gitURL != "":
				return errors.New("--file and --git-url are mutually exclusive")
			case in.file != "":
				return ingestFile(cmd, a, in.file)
			case in.gitURL != "":
				return ingestGit(cmd, a, in)
			default:
				return errors.New("one of --file or --git-url is required")
			}
		}),
	}

	cmd.Flags().StringVarP(&in.file, "file", "f", "", "Path to the YAML document")
	cmd.Flags().StringVar(&in.gitURL, "git-url", "", "Git repository holding YAML documents")
	cmd.Flags().StringVar(&in.gitBranch, "git-branch", "main", "Branch to read")
	cmd.Flags().StringVar(&in.gitPath, "git-path", "**/*.yaml", "Glob of document files within the repository")
	cmd.Flags().StringVar(&in.gitToken, "git-token", os.Getenv("CATALOG_GIT_TOKEN"), "Token for HTTP basic auth (defaults to $CATALOG_GIT_TOKEN)")
	cmd.Flags().BoolVar(&in.gitShallow, "git-shallow", true, "Clone with depth 1")
	cmd.Flags().BoolVar(&in.watch, "watch", false, "Keep polling the repository and re-ingest on new commits")
	cmd.Flags().DurationVar(&in.syncInterval, "sync-interval", time.Minute, "Polling interval with --watch")
	return cmd
}

func ingestFile(cmd *cobra.Command, a *app, path string) error {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("read ingest file: %w", err)
	}
	doc, err := providers.ParseDocument(data)
	if err != nil {
		return err
	}
	sum, err := doc.Apply(cmd.Context(), a.svc)
	if err != nil {
		return err
	}
	return printSummary(cmd, a, sum, "")
}

func ingestGit(cmd *cobra.Command, a *app, in *ingestOptions) error {
	provider, err := git.NewProvider(git.Config[providers.Document]{
		RepoURL:      in.gitURL,
		Branch:       in.gitBranch,
		Path:         in.gitPath,
		AuthToken:    in.gitToken,
		SyncInterval: in.syncInterval,
		ShallowClone: &in.gitShallow,
		Parse:        providers.ParseDocuments,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	if !in.watch {
		snap, err := provider.Read(cmd.Context())
		if err != nil {
			return err
		}
		sum, err := applyAll(cmd.Context(), a, snap.Records)
		if err != nil {
			return err
		}
		return printSummary(cmd, a, sum, snap.Commit)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	snapshots, err := provider.Snapshots(ctx)
	if err != nil {
		return err
	}
	for snap := range snapshots {
		sum, err := applyAll(ctx, a, snap.Records)
		if err != nil {
			a.logger.Error("failed to ingest snapshot", "commit", snap.Commit, "error", err)
			continue
		}
		if err := printSummary(cmd, a, sum, snap.Commit); err != nil {
			return err
		}
	}
	return nil
}

func applyAll(ctx context.Context, a *app, docs []providers.Document) (providers.Summary, error) {
	var total providers.Summary
	for i := range docs {
		sum, err := docs[i].Apply(ctx, a.svc)
		total.Add(sum)
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func printSummary(cmd *cobra.Command, a *app, sum providers.Summary, commit string) error {
	if a.out.structured() {
		return a.out.printOutput(struct {
			providers.Summary
			Commit string `json:"commit,omitempty"`
		}{sum, commit})
	}
	msg := fmt.Sprintf("Ingested %d data entities, %d runs, %d severities", sum.Entities, sum.Runs, sum.Severities)
	if commit != "" {
		msg += " at " + commit
	}
	fmt.Fprintln(cmd.OutOrStdout(), msg)
	return nil
}
