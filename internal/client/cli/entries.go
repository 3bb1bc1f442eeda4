package cli

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/filex"
	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/search"
	"github.com/spf13/cobra"
)

func printEntries(a *App, entries []journal.Entry) {
	if len(entries) == 0 {
		a.printf("No log entries\n")
		return
	}
	for _, e := range entries {
		printEntry(a, e)
	}
}

func (r *runner) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"l", "ls"},
		Short:   "List log entries, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := r.app
			userID, err := a.userID(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.refresh(cmd.Context(), userID); err != nil {
				a.printf("Database unavailable, showing cached entries\n")
			}
			printEntries(a, a.log.Snapshot())
			return nil
		},
	}
}

func (r *runner) newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one entry with its tags",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			rec, err := a.owned(ctx, userID, args[0])
			if err != nil {
				return err
			}
			tr, err := a.repos.Transcriptions().GetByRecordingID(ctx, rec.ID)
			if err != nil && !isNotFound(err) {
				return err
			}
			printEntry(a, journal.EntryFrom(rec, tr))

			tags, err := a.repos.Tags().GetByRecording(ctx, rec.ID)
			if err != nil {
				return err
			}
			if len(tags) > 0 {
				names := make([]string, 0, len(tags))
				for _, t := range tags {
					names = append(names, t.Name)
				}
				a.printf("  tags: %s\n", strings.Join(names, ", "))
			}
			return nil
		},
	}
}

func (r *runner) newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Find entries whose transcript contains text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			userID, err := a.userID(cmd.Context())
			if err != nil {
				return err
			}
			s := search.NewSearcher(a.repos.Transcriptions(), a.log, userID, a.logger)
			printEntries(a, s.Search(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func (r *runner) newDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry with its audio and transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			id := args[0]
			_, err = a.owned(ctx, userID, id)
			switch {
			case err == nil:
			case isNotFound(err):
				// unsaved entries only live in the list
				if _, ok := a.log.Get(id); !ok {
					return err
				}
			default:
				return err
			}

			if !yes && !confirm(a.reader, "Delete entry "+id+"?", a.out) {
				a.printf("Cancelled\n")
				return nil
			}

			removed, err := journal.DeleteEntry(ctx, a.log, a.repos.Recordings(), id)
			if err != nil {
				a.printf("Removed from the list, but the database delete failed: %v\n", err)
				return nil
			}
			if removed {
				a.printf("Deleted %s\n", id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func (r *runner) newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <id> <file>",
		Short: "Write an entry's audio to a WebM file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			rec, err := a.owned(ctx, userID, args[0])
			if err != nil {
				return err
			}
			// audio uploaded to a server blob store is not reachable from here
			if len(rec.AudioData) == 0 {
				return fmt.Errorf("entry %s has no local audio: %w", rec.ID, common.ErrNotFound)
			}
			if err := filex.EnsureParentDir(args[1]); err != nil {
				return err
			}
			if err := filex.WriteAtomic(args[1], bytes.NewReader(rec.AudioData)); err != nil {
				return err
			}
			a.printf("Wrote %d bytes to %s\n", len(rec.AudioData), args[1])
			return nil
		},
	}
}

func (r *runner) newTagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tag <id> <name>...",
		Short: "Tag an entry",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			if _, err := a.owned(ctx, userID, args[0]); err != nil {
				return err
			}
			for _, name := range args[1:] {
				t, err := a.repos.Tags().TagRecording(ctx, args[0], name)
				if err != nil {
					return err
				}
				a.printf("Tagged %s with %s\n", args[0], t.Name)
			}
			return nil
		},
	}
}

func (r *runner) newUntagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "untag <id> <name>",
		Short: "Remove a tag from an entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := r.app
			ctx := cmd.Context()
			userID, err := a.userID(ctx)
			if err != nil {
				return err
			}
			if _, err := a.owned(ctx, userID, args[0]); err != nil {
				return err
			}
			return a.repos.Tags().UntagRecording(ctx, args[0], args[1])
		},
	}
}
