package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/captainslog/internal/journal"
	"github.com/dmitrijs2005/captainslog/internal/search"
	"github.com/spf13/cobra"
)

// execIface is the command surface the shell needs. The runner satisfies
// it; tests provide a stub.
type execIface interface {
	status(ctx context.Context) string
	exec(ctx context.Context, args []string) error
	search(ctx context.Context, query string)
}

// runREPL reads lines from reader until EOF, "exit" or "quit".
//
// A line starting with "/" is a search as you type: the rest of the line
// is searched after the debounce delay, and a newer line replaces a
// pending search. Every other line is run as a journal command, e.g.
//
//	record --file note.webm
//	list
//	/reactor
//
// Command errors are printed and the loop goes on.
func runREPL(ctx context.Context, a execIface, reader *bufio.Reader, out io.Writer) {
	for {
		fmt.Fprintf(out, "log> %s > ", a.status(ctx))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(out)
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
		case line == "exit" || line == "quit":
			fmt.Fprintln(out, "Bye!")
			return
		case line == "help":
			fmt.Fprintln(out, "Available commands: record, list, show, search, delete, export, tag, untag,")
			fmt.Fprintln(out, "settings, apikey, register, login, logout, whoami, password-reset, exit")
			fmt.Fprintln(out, "Type /text to search as you type")
		case strings.HasPrefix(line, "/"):
			a.search(ctx, strings.TrimPrefix(line, "/"))
		default:
			if err := a.exec(ctx, strings.Fields(line)); err != nil {
				fmt.Fprintln(out, "Error:", err)
			}
		}

		if err != nil {
			return
		}
	}
}

func (r *runner) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if r.shared {
				return errors.New("already in the shell")
			}
			s := &shell{
				runner:    r,
				debouncer: search.NewDebouncer(r.cfg.SearchDebounce),
			}
			defer s.debouncer.Cancel()
			runREPL(cmd.Context(), s, r.app.reader, r.app.out)
			return nil
		},
	}
}

// shell runs each line on a fresh command tree over the open App, so
// flags never leak between lines.
type shell struct {
	*runner
	debouncer *search.Debouncer
}

func (s *shell) status(ctx context.Context) string {
	userID, err := s.app.userID(ctx)
	if err != nil {
		return "anonymous"
	}
	u, err := s.app.users.GetUser(ctx, userID)
	if err != nil {
		return "anonymous"
	}
	return u.Email
}

func (s *shell) exec(ctx context.Context, args []string) error {
	sub := &runner{cfg: s.cfg, opts: s.opts, app: s.app, shared: true}
	cmd := sub.root()
	cmd.SetArgs(args)
	return cmd.ExecuteContext(ctx)
}

func (s *shell) search(ctx context.Context, query string) {
	a := s.app
	userID, err := a.userID(ctx)
	if err != nil {
		a.printf("Error: %v\n", err)
		return
	}
	searcher := search.NewSearcher(a.repos.Transcriptions(), a.log, userID, a.logger)
	searcher.Debounced(ctx, s.debouncer, query, func(entries []journal.Entry) {
		a.printf("\nResults for %q:\n", query)
		printEntries(a, entries)
	})
}
