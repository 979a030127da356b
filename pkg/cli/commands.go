// Zaparoo Media Service
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Zaparoo Media Service.
//
// Zaparoo Media Service is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Zaparoo Media Service is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Zaparoo Media Service.  If not, see <http://www.gnu.org/licenses/>.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/database"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/mediasvc"
	"github.com/ZaparooProject/zaparoo-mediasvc/pkg/service/scanner"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"
)

type envKey struct{}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configDir string
	debug     bool
	quiet     bool
}

// Execute runs the command line in args and closes whatever environment
// the command opened, whether it failed or not.
func Execute(ctx context.Context, open Opener, args []string, out io.Writer, logWriters ...io.Writer) error {
	var env *Env
	root := newRootCmd(open, &env, logWriters)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)
	err := root.ExecuteContext(ctx)
	if env != nil {
		err = errors.Join(err, env.Close())
	}
	return err
}

func skipsEnv(cmd *cobra.Command) bool {
	if cmd.Name() == "help" {
		return true
	}
	return cmd.HasParent() && cmd.Parent().Name() == "completion"
}

func newRootCmd(open Opener, opened **Env, logWriters []io.Writer) *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:           "mediasvc",
		Short:         "Maintain the local media index",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if skipsEnv(cmd) {
				return nil
			}
			env, err := open(cmd.Context(), EnvOptions{
				ConfigDir:  gf.configDir,
				Debug:      gf.debug,
				Quiet:      gf.quiet,
				LogWriters: logWriters,
			})
			if err != nil {
				return err
			}
			*opened = env
			cmd.SetContext(context.WithValue(cmd.Context(), envKey{}, env))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&gf.configDir, "config-dir", ".", "directory holding mediasvc.toml")
	root.PersistentFlags().BoolVar(&gf.debug, "debug", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&gf.quiet, "quiet", false, "do not announce changes")

	root.AddCommand(
		newScanCmd(),
		newInsertCmd(),
		newMoveCmd(),
		newRenameFolderCmd(),
		newDeleteCmd(),
		newRefreshCmd(),
		newValidityCmd(),
		newPurgeCmd(),
		newFoldersCmd(),
		newCheckCmd(),
		newPlaylistCmd(),
		newTagCmd(),
		newBookmarkCmd(),
		newServeCmd(),
	)
	return root
}

func envFrom(cmd *cobra.Command) *Env {
	env, _ := cmd.Context().Value(envKey{}).(*Env)
	return env
}

func parseStorage(s string) (database.StorageOrigin, error) {
	switch s {
	case "internal":
		return database.StorageInternal, nil
	case "external":
		return database.StorageExternal, nil
	default:
		return 0, fmt.Errorf("%w: unknown storage %q", database.ErrInvalidArgument, s)
	}
}

func newScanCmd() *cobra.Command {
	var notify bool
	var size int
	cmd := &cobra.Command{
		Use:   "scan DIR...",
		Short: "Index every new file below the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			if size == 0 {
				size = env.Cfg.BatchSize()
			}
			sc := scanner.New(env.Svc, size, notify)
			for _, dir := range args {
				res, err := sc.Scan(cmd.Context(), dir)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d found, %d indexed, %d skipped, %d failed\n",
					dir, res.Found, res.Staged, res.Skipped, res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&notify, "notify", true, "announce each indexed file")
	cmd.Flags().IntVar(&size, "batch", 0, "items per transaction (default from config)")
	return cmd
}

func newInsertCmd() *cobra.Command {
	var mime string
	cmd := &cobra.Command{
		Use:   "insert FILE...",
		Short: "Index files immediately",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			var errs []error
			for _, p := range args {
				rec, err := env.Svc.InsertImmediately(cmd.Context(), mediasvc.InsertItem{Path: p, MimeType: mime})
				if err != nil {
					errs = append(errs, err)
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", rec.UUID, rec.Path)
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().StringVar(&mime, "mime", "", "MIME type, sniffed when empty")
	return cmd
}

func newMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move SRC DST [SRC DST]...",
		Short: "Record that indexed files were moved",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 || len(args)%2 != 0 {
				return errors.New("move takes SRC DST pairs")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			ctx := cmd.Context()
			sess, err := env.Svc.BeginBatch(mediasvc.BatchMove, env.Cfg.BatchSize(), mediasvc.BatchOptions{Notify: true})
			if err != nil {
				return err
			}
			for i := 0; i < len(args); i += 2 {
				if err := sess.StageMove(ctx, args[i], args[i+1]); err != nil {
					return errors.Join(err, sess.End(ctx))
				}
			}
			return sess.End(ctx)
		},
	}
	return cmd
}

func newRenameFolderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rename-folder SRC DST",
		Short: "Rename a folder and everything indexed below it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := envFrom(cmd).Svc.RenameFolder(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d folders, %d items renamed\n", res.Folders, res.Items)
			return nil
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete FILE...",
		Short: "Remove files from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			var errs []error
			for _, p := range args {
				if err := env.Svc.DeleteItem(cmd.Context(), p); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh FILE...",
		Short: "Re-read metadata and drop stale thumbnails",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			var errs []error
			for _, p := range args {
				if _, err := env.Svc.RefreshItem(cmd.Context(), p); err != nil {
					errs = append(errs, err)
				}
			}
			return errors.Join(errs...)
		},
	}
}

func newValidityCmd() *cobra.Command {
	var storage string
	cmd := &cobra.Command{
		Use:   "validity true|false [FILE...]",
		Short: "Mark files, or a whole storage, present or absent",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			ctx := cmd.Context()
			valid, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid validity %q: %w", args[0], err)
			}

			if storage != "" {
				origin, err := parseStorage(storage)
				if err != nil {
					return err
				}
				n, err := env.Svc.SetAllStorageItemsValidity(ctx, origin, valid)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d items updated\n", n)
				return nil
			}

			sess, err := env.Svc.BeginBatch(mediasvc.BatchValidity, env.Cfg.BatchSize(), mediasvc.BatchOptions{Notify: true})
			if err != nil {
				return err
			}
			for _, p := range args[1:] {
				if err := sess.StageSetValidity(ctx, p, valid); err != nil {
					return errors.Join(err, sess.End(ctx))
				}
			}
			return sess.End(ctx)
		},
	}
	cmd.Flags().StringVar(&storage, "storage", "", "apply to every item of internal or external storage")
	return cmd
}

func newPurgeCmd() *cobra.Command {
	var invalidOnly bool
	cmd := &cobra.Command{
		Use:   "purge internal|external",
		Short: "Delete the items of a storage and their thumbnails",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			origin, err := parseStorage(args[0])
			if err != nil {
				return err
			}
			var n int64
			if invalidOnly {
				n, err = env.Svc.DeleteInvalidItemsInStorage(cmd.Context(), origin)
			} else {
				n, err = env.Svc.DeleteAllItemsInStorage(cmd.Context(), origin)
			}
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d items deleted\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&invalidOnly, "invalid-only", false, "only delete items marked absent")
	return cmd
}

func newFoldersCmd() *cobra.Command {
	var add bool
	cmd := &cobra.Command{
		Use:   "folders [PREFIX]",
		Short: "List indexed folders as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env := envFrom(cmd)
			prefix := ""
			if len(args) == 1 {
				prefix = args[0]
			}
			if add {
				if prefix == "" {
					return errors.New("--add needs a folder")
				}
				if _, err := env.Svc.InsertFolder(cmd.Context(), prefix); err != nil {
					return err
				}
			}

			folders, err := env.Svc.ListFolders(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			if len(folders) == 0 {
				return nil
			}
			if err := gocsv.Marshal(folders, cmd.OutOrStdout()); err != nil {
				return fmt.Errorf("failed to write folder csv: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "register PREFIX as an empty folder first")
	return cmd
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a quick integrity check of the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := envFrom(cmd).Svc.CheckIntegrity(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
