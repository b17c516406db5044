package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"vertdctl/internal/jobs"
)

func renderJobsTable(list []jobs.Job) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"ID", "FILE", "SIZE", "STATUS", "PROGRESS", "CREATED"})

	for _, job := range list {
		tw.AppendRow(table.Row{
			job.ID,
			job.File.Name,
			humanize.Bytes(uint64(job.File.SizeBytes)),
			string(job.Status),
			formatProgress(job),
			humanize.Time(job.CreatedAt.Time),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func formatProgress(job jobs.Job) string {
	switch job.Status {
	case jobs.StatusCompleted:
		return "100%"
	case jobs.StatusPending, jobs.StatusConfirmed:
		return "-"
	default:
		return fmt.Sprintf("%.1f%%", job.Progress)
	}
}
