// omlspool inspects SQLite spools written by sqlite: measurement channels.
//
//	omlspool --db spool.db              list recorded sessions
//	omlspool --db spool.db --dump 2     print the protocol text of session 2
//	omlspool --db spool.db --dump 0     print every session in order
//	omlspool --db spool.db --reset      drop all recorded lines
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/georgevio/oml4go/internal/infrastructure/config"
	"github.com/georgevio/oml4go/internal/transport"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string, out io.Writer) error {
	fs := pflag.NewFlagSet("omlspool", pflag.ContinueOnError)
	path := fs.String("db", "", "spool database path (required)")
	dump := fs.Int64("dump", -1, "print session N as protocol text (0 prints all)")
	reset := fs.Bool("reset", false, "drop every recorded session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return errors.New("--db is required")
	}
	if *reset && *dump >= 0 {
		return errors.New("--reset and --dump are mutually exclusive")
	}

	cfg, err := config.Load(os.Getenv("OML_CONFIG"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	spool, err := transport.OpenSpool(ctx, cfg.Spool, *path)
	if err != nil {
		return err
	}
	defer spool.Close()

	switch {
	case *reset:
		if err := spool.Reset(ctx); err != nil {
			return fmt.Errorf("resetting spool: %w", err)
		}
		fmt.Fprintf(out, "spool %s reset\n", *path)
		return nil
	case *dump >= 0:
		return spool.Dump(ctx, *dump, out)
	default:
		return listSessions(ctx, spool, out)
	}
}

func listSessions(ctx context.Context, spool *transport.Spool, out io.Writer) error {
	sessions, err := spool.Sessions(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOPENED\tLINES\tTARGET")
	for _, s := range sessions {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", s.ID, s.OpenedAt.Format(time.RFC3339), s.Lines, s.Target)
	}
	return tw.Flush()
}
