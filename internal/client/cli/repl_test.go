package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls    [][]string
	searches []string
	err      error
}

func (f *fakeExec) status(context.Context) string { return "status" }

func (f *fakeExec) exec(_ context.Context, args []string) error {
	f.calls = append(f.calls, args)
	return f.err
}

func (f *fakeExec) search(_ context.Context, q string) { f.searches = append(f.searches, q) }

func TestRunREPL_CommandsAndSearch(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"list",
		"",
		"record --file note.webm",
		"/reactor core",
		"exit",
		"list",
	}, "\n")

	f := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), f, rdr(input), &out)

	assert.Equal(t, [][]string{{"list"}, {"record", "--file", "note.webm"}}, f.calls)
	assert.Equal(t, []string{"reactor core"}, f.searches)
	assert.Contains(t, out.String(), "log> status > ")
	assert.Contains(t, out.String(), "Available commands")
	assert.Contains(t, out.String(), "Bye!")
}

func TestRunREPL_ErrorsDoNotStopTheLoop(t *testing.T) {
	f := &fakeExec{err: errors.New("boom")}
	var out bytes.Buffer
	runREPL(context.Background(), f, rdr("show x\nlist"), &out)

	// the last line has no newline and still runs
	assert.Len(t, f.calls, 2)
	assert.Equal(t, 2, strings.Count(out.String(), "Error: boom"))
}

func TestRunREPL_EOF(t *testing.T) {
	f := &fakeExec{}
	var out bytes.Buffer
	runREPL(context.Background(), f, rdr(""), &out)
	assert.Empty(t, f.calls)
}
