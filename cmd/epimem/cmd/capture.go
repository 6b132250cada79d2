package cmd

import (
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/epimem/internal/episode"
	"github.com/Aman-CERP/epimem/internal/output"
)

type captureOptions struct {
	project       string
	prompt        string
	summary       string
	taskType      string
	domainTags    []string
	filesRead     []string
	filesModified []string
	toolsInvoked  []string
	outcome       string
	commitRef     string
}

func newCaptureCmd() *cobra.Command {
	var opts captureOptions

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Record a finished or in-progress session as an episode",
		Long: `Capture stores a session's intent, context, and outcome as a new
episode, then indexes it for retrieval (spec §4.1, §4.2).

If --outcome names a terminal status (success, partial, failure),
capture also runs temporal credit assignment over every episode
retrieved during this session's window.`,
		Example: `  epimem capture --project myapp --prompt "fix login bug" \
    --task-type bugfix --outcome success --modified internal/auth/login.go`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCapture(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.project, "project", "", "Project identifier")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "The raw developer prompt (required)")
	cmd.Flags().StringVar(&opts.summary, "summary", "", "Short human summary of the intent")
	cmd.Flags().StringVar(&opts.taskType, "task-type", string(episode.TaskUnknown), "Task type: bugfix, feature, refactor, test, docs, research, debug, setup, unknown")
	cmd.Flags().StringSliceVar(&opts.domainTags, "tag", nil, "Domain tag (repeatable)")
	cmd.Flags().StringSliceVar(&opts.filesRead, "read", nil, "File read during the session (repeatable)")
	cmd.Flags().StringSliceVar(&opts.filesModified, "modified", nil, "File modified during the session (repeatable)")
	cmd.Flags().StringSliceVar(&opts.toolsInvoked, "tool", nil, "Tool invoked during the session (repeatable)")
	cmd.Flags().StringVar(&opts.outcome, "outcome", string(episode.OutcomeUnknown), "Outcome status: success, partial, failure, unknown")
	cmd.Flags().StringVar(&opts.commitRef, "commit-ref", "", "Commit SHA the session produced, if any")

	_ = cmd.MarkFlagRequired("prompt")

	return cmd
}

func runCapture(cmd *cobra.Command, opts captureOptions) error {
	out := output.New(cmd.OutOrStdout())

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer func() { _ = e.Close() }()

	now := time.Now().UTC()
	input := episode.Input{
		CreatedAt: now,
		EndedAt:   now,
		Project:   opts.project,
		Intent: episode.Intent{
			RawPrompt:  opts.prompt,
			Summary:    opts.summary,
			TaskType:   episode.TaskType(strings.ToLower(opts.taskType)),
			DomainTags: opts.domainTags,
		},
		Context: episode.Context{
			FilesRead:     opts.filesRead,
			FilesModified: opts.filesModified,
			ToolsInvoked:  opts.toolsInvoked,
		},
		Outcome: episode.Outcome{
			Status:    episode.OutcomeStatus(strings.ToLower(opts.outcome)),
			CommitRef: opts.commitRef,
		},
	}

	result, err := e.Capture(cmd.Context(), input)
	if err != nil {
		return err
	}

	out.Successf("Captured episode %s", result.ID)
	return nil
}
