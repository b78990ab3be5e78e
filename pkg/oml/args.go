package oml

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/georgevio/oml4go/internal/infrastructure/config"
)

// flagPrefix marks command-line arguments that belong to the client.
const flagPrefix = "--oml-"

// NewFromArgs builds a client from OML_CONFIG, the OML_* environment and
// the --oml-* flags in args. Arguments that are not --oml-* flags are
// returned in order for the application to parse.
func NewFromArgs(appName string, args []string, opts ...Option) (*Client, []string, error) {
	cfg, err := config.Load(os.Getenv("OML_CONFIG"))
	if err != nil {
		return nil, nil, unsupported(err)
	}

	fs := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	cfg.AddFlags(fs)

	omlArgs, rest, err := splitArgs(fs, args)
	if err != nil {
		return nil, nil, err
	}
	if err := fs.Parse(omlArgs); err != nil {
		return nil, nil, fmt.Errorf("parsing oml flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, err := New(appName, cfg, opts...)
	if err != nil {
		return nil, nil, err
	}
	return client, rest, nil
}

func unsupported(err error) error {
	if errors.Is(err, config.ErrUnsupportedURL) {
		return fmt.Errorf("%w: %w", ErrUnsupportedOption, err)
	}
	return err
}

// splitArgs separates --oml-* flags (with their values) from everything
// else. Scanning stops at "--", which is kept for the application.
func splitArgs(fs *pflag.FlagSet, args []string) (oml, rest []string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			rest = append(rest, args[i:]...)
			break
		}
		if !strings.HasPrefix(arg, flagPrefix) {
			rest = append(rest, arg)
			continue
		}

		name, _, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if name == "oml-url" {
			return nil, nil, fmt.Errorf("%w: --oml-url, use --oml-collect", ErrUnsupportedOption)
		}
		oml = append(oml, arg)

		f := fs.Lookup(name)
		if hasValue || f == nil || f.NoOptDefVal != "" {
			continue
		}
		if i+1 < len(args) {
			i++
			oml = append(oml, args[i])
		}
	}
	return oml, rest, nil
}
