package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scrivo/internal/ipc"
	"scrivo/internal/media"
	"scrivo/internal/queue"
	"scrivo/internal/resultcache"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <path>",
		Short: "Add a media file to the processing queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			absPath, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}

			info, err := os.Stat(absPath)
			if err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("file does not exist: %s", absPath)
				}
				return fmt.Errorf("inspect file: %w", err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", absPath)
			}
			if err := media.ValidatePath(absPath, cfg.Input.AllowedExtensions); err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			// Prefer the daemon so its watch-loop dedupe applies; fall back
			// to the store when no daemon is listening.
			if client, dialErr := ipc.Dial(ctx.socketPath()); dialErr == nil {
				defer client.Close()
				resp, err := client.AddFile(absPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queued %s as item #%d\n", filepath.Base(absPath), resp.Item.ID)
				return nil
			}

			store, err := queue.Open(cfg)
			if err != nil {
				return fmt.Errorf("open queue database: %w", err)
			}
			defer store.Close()

			fingerprint := resultcache.Fingerprint(absPath)
			if existing, err := store.FindByFingerprint(cmd.Context(), fingerprint); err != nil {
				return err
			} else if existing != nil {
				fmt.Fprintf(out, "Already queued as item #%d (%s)\n", existing.ID, formatStatusLabel(string(existing.Status)))
				return nil
			}

			item, err := store.NewFile(cmd.Context(), absPath, fingerprint)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Queued %s as item #%d\n", filepath.Base(absPath), item.ID)
			return nil
		},
	}
}
