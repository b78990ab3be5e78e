package config

import (
	"github.com/spf13/pflag"
)

// AddFlags registers the --oml-* command-line flags on fs. Values already in
// c act as defaults, so flags override file and environment settings.
func (c *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Collection.NodeID, "oml-id", c.Collection.NodeID, "name to identify this app instance")
	fs.StringVar(&c.Collection.Domain, "oml-domain", c.Collection.Domain, "name of experimental domain")
	fs.StringVar(&c.Collection.Collect, "oml-collect", c.Collection.Collect, "URI of server to send measurements to")
	fs.IntVar(&c.Logging.Verbosity, "oml-log-level", c.Logging.Verbosity, "log level used (info: 0 .. debug: 1)")
	fs.BoolVar(&c.Collection.Noop, "oml-noop", c.Collection.Noop, "do not collect measurements")

	fs.StringVar(&c.Collection.Domain, "oml-exp-id", c.Collection.Domain, "obsolescent equivalent to --oml-domain")
	_ = fs.MarkDeprecated("oml-exp-id", "use --oml-domain instead")

	fs.Var(&prefixValue{target: &c.Collection.Collect, prefix: "file:"}, "oml-file", "obsolescent equivalent to --oml-collect file:<path>")
	_ = fs.MarkDeprecated("oml-file", "use --oml-collect file:<path> instead")

	fs.StringVar(&c.Collection.Collect, "oml-server", c.Collection.Collect, "obsolescent equivalent to --oml-collect")
	_ = fs.MarkDeprecated("oml-server", "use --oml-collect instead")
}

// prefixValue stores a flag value with a fixed prefix prepended.
type prefixValue struct {
	target *string
	prefix string
}

func (v *prefixValue) String() string {
	if v.target == nil {
		return ""
	}
	return *v.target
}

func (v *prefixValue) Set(s string) error {
	*v.target = v.prefix + s
	return nil
}

func (v *prefixValue) Type() string {
	return "path"
}
