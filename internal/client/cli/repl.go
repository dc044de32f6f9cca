package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	IsAuthenticated() bool
	Open(ctx context.Context, path string)
	WhoAmI() string
	Storage(ctx context.Context, cmd string) (string, error)
}

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to a. The loop exits on EOF, when ctx is done, or when the user
// types "exit" or "quit".
//
//	help           show available commands
//	open <path>    navigate to a page, e.g. open /login
//	whoami         show the signed-in user
//	storage <cmd>  pause, resume, flush or purge the saved session
//	exit | quit    leave the program
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "verdant %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.IsAuthenticated() {
				fmt.Fprintln(w, "Available commands: open <path>, whoami, storage <pause|resume|flush|purge>, exit (pages: /dashboard, /dashboard/change-password, /dashboard/signout)")
			} else {
				fmt.Fprintln(w, "Available commands: open <path>, whoami, storage <pause|resume|flush|purge>, exit (pages: /, /login, /register, /verify, /forgot-password, /reset-password)")
			}

		case "open":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: open <path>")
				continue
			}
			a.Open(ctx, args[0])

		case "whoami":
			fmt.Fprintln(w, a.WhoAmI())

		case "storage":
			if len(args) == 0 {
				fmt.Fprintln(w, "Usage: storage <pause|resume|flush|purge>")
				continue
			}
			msg, err := a.Storage(ctx, args[0])
			if err != nil {
				fmt.Fprintln(w, "[error]", err)
				continue
			}
			fmt.Fprintln(w, msg)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
