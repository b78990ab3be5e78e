// omlsend generates sine and cosine samples and reports them through the
// OML client. It is both a demo and a smoke test for collection endpoints:
//
//	omlsend --oml-domain lab1 --oml-id node7 --oml-collect tcp:collector:3003 --samples 50
package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/georgevio/oml4go/internal/infrastructure/logging"
	"github.com/georgevio/oml4go/pkg/oml"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const appName = "omlsend"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// generator holds the demo's command-line settings.
type generator struct {
	samples   int
	interval  time.Duration
	amplitude float64
	period    int

	statusPort int
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context, args []string) error {
	log := logging.Default()
	oml.Version = version

	client, rest, err := oml.NewFromArgs(appName, args)
	if err != nil {
		return fmt.Errorf("initialising oml client: %w", err)
	}

	gen, err := parseFlags(rest)
	if err != nil {
		return err
	}

	sine, err := definePoint(client, "sin")
	if err != nil {
		return err
	}
	cosine, err := definePoint(client, "cos")
	if err != nil {
		return err
	}

	if gen.statusPort >= 0 {
		client.Config().Status.Enabled = true
		client.Config().Status.Port = gen.statusPort
	}

	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting oml client: %w", err)
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing oml client", "error", closeErr)
		}
	}()
	log.Info("generating samples",
		"version", version,
		"commit", commit,
		"build_date", date,
		"samples", gen.samples,
		"interval", gen.interval,
	)

	return gen.loop(ctx, sine, cosine)
}

func parseFlags(args []string) (generator, error) {
	var g generator
	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	fs.IntVarP(&g.samples, "samples", "n", 100, "number of samples per point (0 runs until interrupted)")
	fs.DurationVarP(&g.interval, "interval", "i", time.Second, "pause between samples")
	fs.Float64Var(&g.amplitude, "amplitude", 1.0, "wave amplitude")
	fs.IntVar(&g.period, "period", 16, "samples per wave period")
	fs.IntVar(&g.statusPort, "status-port", -1, "serve channel status on this port (-1 disables)")

	if err := fs.Parse(args); err != nil {
		return g, err
	}
	if g.samples < 0 {
		return g, errors.New("--samples must not be negative")
	}
	if g.interval <= 0 {
		return g, errors.New("--interval must be positive")
	}
	if g.period <= 0 {
		return g, errors.New("--period must be positive")
	}
	if g.statusPort > 65535 {
		return g, errors.New("--status-port must be at most 65535")
	}
	return g, nil
}

func definePoint(client *oml.Client, name string) (*oml.MeasurementPoint, error) {
	p, err := client.Define(name)
	if err != nil {
		return nil, err
	}
	for _, f := range [][2]string{{"label", "string"}, {"step", "int32"}, {"phase", "double"}, {"value", "double"}} {
		if err := p.Param(f[0], f[1]); err != nil {
			return nil, fmt.Errorf("declaring %s.%s: %w", name, f[0], err)
		}
	}
	return p, nil
}

func (g generator) loop(ctx context.Context, sine, cosine *oml.MeasurementPoint) error {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for step := 0; g.samples == 0 || step < g.samples; step++ {
		phase := 2 * math.Pi * float64(step%g.period) / float64(g.period)
		label := fmt.Sprintf("sample-%d", step+1)

		if err := sine.Inject(label, step, phase, g.amplitude*math.Sin(phase)); err != nil {
			return fmt.Errorf("injecting sin: %w", err)
		}
		if err := cosine.Inject(label, step, phase, g.amplitude*math.Cos(phase)); err != nil {
			return fmt.Errorf("injecting cos: %w", err)
		}

		if g.samples != 0 && step == g.samples-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}
