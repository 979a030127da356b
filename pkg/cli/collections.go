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
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

func newPlaylistCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playlist",
		Short: "Manage playlists",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := envFrom(cmd).Svc.CreatePlaylist(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", pl.ID, pl.Name)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add ID FILE...",
		Short: "Append indexed files to a playlist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return envFrom(cmd).Svc.AddToPlaylist(cmd.Context(), id, args[1:]...)
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "List the files of a playlist in play order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entries, err := envFrom(cmd).Svc.PlaylistItems(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if !e.Path.Valid {
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", e.PlayOrder, e.Path.String)
			}
			return nil
		},
	}

	cmd.AddCommand(create, add, show)
	return cmd
}

func newTagCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}

	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tag, err := envFrom(cmd).Svc.CreateTag(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", tag.ID, tag.Name)
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add ID FILE...",
		Short: "Tag indexed files",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			env := envFrom(cmd)
			for _, p := range args[1:] {
				if err := env.Svc.TagMedia(cmd.Context(), id, p); err != nil {
					return err
				}
			}
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show ID",
		Short: "List the files carrying a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			entries, err := envFrom(cmd).Svc.TagItems(cmd.Context(), id)
			if err != nil {
				return err
			}
			for _, e := range entries {
				if e.Path.Valid {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), e.Path.String)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(create, add, show)
	return cmd
}

func newBookmarkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookmark",
		Short: "Manage bookmarks",
	}

	var (
		at    time.Duration
		thumb string
	)
	add := &cobra.Command{
		Use:   "add FILE",
		Short: "Bookmark a position in an indexed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var marked time.Time
			if at > 0 {
				marked = time.Unix(0, 0).Add(at)
			}
			bm, err := envFrom(cmd).Svc.AddBookmark(cmd.Context(), args[0], marked, thumb)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\n", bm.ID)
			return nil
		},
	}
	add.Flags().DurationVar(&at, "at", 0, "position to mark; now when unset")
	add.Flags().StringVar(&thumb, "thumbnail", "", "thumbnail captured at the mark")

	list := &cobra.Command{
		Use:   "list FILE",
		Short: "List the bookmarks of an indexed file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			marks, err := envFrom(cmd).Svc.Bookmarks(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, bm := range marks {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%d\n", bm.ID, bm.MarkedTime.Unix())
			}
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}
