package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert <job-id>",
		Short: "Approve a pending job for transcoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.Convert(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("convert job %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s.\n", job.ID, job.Status)
			return nil
		},
	}
}

func newSkipCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "skip <job-id>",
		Short: "Skip a job without transcoding it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			job, err := client.Skip(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("skip job %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job %s is now %s.\n", job.ID, job.Status)
			return nil
		},
	}
}

func newDownloadURLCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "download-url <job-id>",
		Short: "Print a pre-signed URL for a job's output",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			url, err := client.DownloadURL(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("download url for %s: %w", args[0], err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			healthy, err := client.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health check: %w", err)
			}
			if !healthy {
				return fmt.Errorf("service reported unhealthy")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Service is healthy.")
			return nil
		},
	}
}
