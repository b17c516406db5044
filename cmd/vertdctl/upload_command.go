package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"vertdctl/internal/config"
	"vertdctl/internal/upload"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a media file for transcoding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			info, err := os.Stat(source)
			if err != nil {
				return fmt.Errorf("upload source: %w", err)
			}

			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			filename := filepath.Base(source)
			destURL, err := client.UploadURL(cmd.Context(), filename)
			if err != nil {
				return fmt.Errorf("request upload destination: %w", err)
			}

			bridge := upload.NewBridge(
				upload.WithTimeouts(
					time.Duration(cfg.Upload.RequestTimeoutSeconds)*time.Second,
					time.Duration(cfg.Upload.TransferTimeoutSeconds)*time.Second,
				),
				upload.WithLogger(ctx.logger()),
			)

			progress := uploadProgress(cmd, filename, info.Size())
			if err := bridge.Upload(cmd.Context(), source, destURL, progress); err != nil {
				return fmt.Errorf("upload %s: %w", filename, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s (%s). The server will pick it up shortly.\n",
				filename, humanize.Bytes(uint64(info.Size())))
			return nil
		},
	}
}

// uploadProgress returns a fraction callback: a live bar on a terminal, nil
// otherwise.
func uploadProgress(cmd *cobra.Command, filename string, size int64) func(float64) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	bar := progressbar.NewOptions64(size,
		progressbar.OptionSetDescription(filename),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWriter(cmd.OutOrStdout()),
		progressbar.OptionClearOnFinish(),
	)
	return func(fraction float64) {
		_ = bar.Set64(int64(fraction * float64(size)))
	}
}
