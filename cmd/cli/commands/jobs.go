package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meltingprovince/virtualset/internal/session"
	"github.com/meltingprovince/virtualset/internal/types"
)

// jobs flag names
const (
	flagID  = "id"
	flagFix = "fix"
)

func init() {
	jobsCmd.AddCommand(jobStatusCmd)
	jobsCmd.AddCommand(jobResultCmd)
	jobsCmd.AddCommand(watchJobCmd)
	jobsCmd.AddCommand(reviseJobCmd)

	for _, cmd := range []*cobra.Command{jobStatusCmd, jobResultCmd, watchJobCmd, reviseJobCmd} {
		cmd.Flags().StringP(flagID, "i", "", "Job ID")
		_ = cmd.MarkFlagRequired(flagID)
	}

	reviseJobCmd.Flags().StringSlice(flagFix, nil, "Quick fix, repeatable")
	reviseJobCmd.Flags().String(flagNotes, "", "Free text revision notes")
	reviseJobCmd.Flags().BoolP(flagWatch, "w", false, "Poll the revised job until it completes or fails")
}

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and revise generation jobs",
}

var jobStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Query the status of a job once",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, token, err := jobRequest(cmd)
		if err != nil {
			return err
		}
		c, err := getAPIClient()
		if err != nil {
			return err
		}

		status, err := c.CheckStatus(cmd.Context(), jobID, token)
		if err != nil {
			return fmt.Errorf("error fetching job status: %w", err)
		}
		return printJob(cmd, statusOutput(status))
	},
}

var jobResultCmd = &cobra.Command{
	Use:   "result",
	Short: "Fetch the outputs of a completed job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, token, err := jobRequest(cmd)
		if err != nil {
			return err
		}
		c, err := getAPIClient()
		if err != nil {
			return err
		}

		results, err := c.GetResults(cmd.Context(), jobID, token)
		if err != nil {
			return fmt.Errorf("error fetching job results: %w", err)
		}
		return printJob(cmd, resultsOutput(results))
	},
}

var watchJobCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll a job until it completes or fails",
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobID, _ := cmd.Flags().GetString(flagID)
		return watchSession(cmd, func(ctx context.Context, s *session.Session) error {
			return s.Track(ctx, jobID)
		})
	},
}

var reviseJobCmd = &cobra.Command{
	Use:   "revise",
	Short: "Request a revision of a job",
	RunE: func(cmd *cobra.Command, _ []string) error {
		fixes, _ := cmd.Flags().GetStringSlice(flagFix)
		notes, _ := cmd.Flags().GetString(flagNotes)
		revision := types.Revision{Fixes: fixes, Notes: notes}
		if err := revision.Validate(); err != nil {
			return err
		}

		jobID, token, err := jobRequest(cmd)
		if err != nil {
			return err
		}
		c, err := getAPIClient()
		if err != nil {
			return err
		}

		handle, err := c.SubmitRevision(cmd.Context(), jobID, revision, token)
		if err != nil {
			return fmt.Errorf("error submitting revision: %w", err)
		}

		watch, _ := cmd.Flags().GetBool(flagWatch)
		if !watch {
			return printHandle(cmd, handle)
		}
		return watchSession(cmd, func(ctx context.Context, s *session.Session) error {
			return s.Track(ctx, handle.JobID)
		})
	},
}

// jobRequest reads the job id flag and resolves the auth token
func jobRequest(cmd *cobra.Command) (string, string, error) {
	jobID, _ := cmd.Flags().GetString(flagID)
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return "", "", fmt.Errorf("job id is required")
	}

	tokens, err := getTokenProvider()
	if err != nil {
		return "", "", err
	}
	token, err := tokens.Token()
	if err != nil {
		return "", "", err
	}
	return jobID, token, nil
}

// GetJobsCmd returns the jobs command
func GetJobsCmd() *cobra.Command {
	return jobsCmd
}
