package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isAuthed(ctx context.Context) bool
	Start(ctx context.Context, args []string) error
	Verify(ctx context.Context, args []string) error
	RetryVerify(ctx context.Context, args []string) error
	Onboard(ctx context.Context) error
	Callback(ctx context.Context, args []string) error
	Status(ctx context.Context) error
	Refresh(ctx context.Context) error
	Connections(ctx context.Context, args []string) error
	Sync(ctx context.Context, args []string) error
	Backfill(ctx context.Context, args []string) error
	Disconnect(ctx context.Context, args []string) error
	Summary(ctx context.Context, args []string) error
	SignOut(ctx context.Context) error
}

// runREPL reads a line, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on scanner EOF or when the user types "exit" or
// "quit". Handler errors are printed, never fatal.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("bp %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]
		args := parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isAuthed(ctx) {
				printlnFn("Available commands: status, refresh, onboard, connections, sync, backfill, disconnect, summary, callback, signout, exit")
			} else {
				printlnFn("Available commands: start <email>, verify <token>, retry <token>, onboard, callback, status, exit")
			}

		case "start", "subscribe":
			err = a.Start(ctx, args)
		case "verify":
			err = a.Verify(ctx, args)
		case "retry":
			err = a.RetryVerify(ctx, args)
		case "onboard", "onboarding":
			err = a.Onboard(ctx)
		case "callback":
			err = a.Callback(ctx, args)
		case "status":
			err = a.Status(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "connections":
			err = a.Connections(ctx, args)
		case "sync":
			err = a.Sync(ctx, args)
		case "backfill":
			err = a.Backfill(ctx, args)
		case "disconnect":
			err = a.Disconnect(ctx, args)
		case "summary":
			err = a.Summary(ctx, args)
		case "signout", "logout":
			err = a.SignOut(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
