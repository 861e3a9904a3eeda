package cli

import (
	"bufio"
	"context"
	"os"
)

func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to BriefPulse (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, func() string { return a.StatusLine(ctx) }, scanner)
}
