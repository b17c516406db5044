package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vertdctl/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List transcoding jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			list, err := client.ListJobs(cmd.Context())
			if err != nil {
				return fmt.Errorf("list jobs: %w", err)
			}
			jobs.SortByCreatedDesc(list)

			out := cmd.OutOrStdout()
			if jsonOutput {
				encoder := json.NewEncoder(out)
				encoder.SetIndent("", "  ")
				return encoder.Encode(list)
			}
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs.")
				return nil
			}
			fmt.Fprintln(out, renderJobsTable(list))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit jobs as JSON")

	cmd.AddCommand(newJobsShowCommand(ctx))
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job in detail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.Job(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get job %s: %w", args[0], err)
			}
			printJobDetail(cmd, job)
			return nil
		},
	}
}

func printJobDetail(cmd *cobra.Command, job jobs.Job) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:       %s\n", job.ID)
	fmt.Fprintf(out, "File:     %s (%s)\n", job.File.Name, humanize.Bytes(uint64(job.File.SizeBytes)))
	fmt.Fprintf(out, "Status:   %s\n", job.Status)
	fmt.Fprintf(out, "Progress: %s\n", formatProgress(job))
	fmt.Fprintf(out, "Created:  %s\n", job.CreatedAt.Time.Local())
	if job.StartedAt != nil {
		fmt.Fprintf(out, "Started:  %s\n", job.StartedAt.Time.Local())
	}
	if job.CompletedAt != nil {
		fmt.Fprintf(out, "Finished: %s\n", job.CompletedAt.Time.Local())
	}
	if probe := job.Probe; probe != nil {
		fmt.Fprintf(out, "Source:   %s/%s %dx%d, %.1f fps, %s\n",
			probe.VideoCodec, probe.AudioCodec, probe.Width, probe.Height,
			probe.FrameRate, formatSeconds(probe.DurationSeconds))
	}
	if result := job.Result; result != nil {
		if result.Error != "" {
			fmt.Fprintf(out, "Error:    %s\n", result.Error)
			return
		}
		fmt.Fprintf(out, "Output:   %s (%s, %s)\n",
			result.OutputS3Key, humanize.Bytes(uint64(result.OutputSizeBytes)),
			formatSeconds(result.DurationSeconds))
	}
}

func formatSeconds(seconds float64) string {
	return fmt.Sprintf("%dm%02ds", int(seconds)/60, int(seconds)%60)
}
