// Package config handles loading and validating OML client configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with the OML_* environment variables
//   - Registering the --oml-* command-line flags
//   - Validation of required fields
//   - Default value handling
//
// Usage:
//
//	cfg, err := config.Load("configs/oml.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fs := pflag.NewFlagSet("probe", pflag.ContinueOnError)
//	cfg.AddFlags(fs)
//	_ = fs.Parse(os.Args[1:])
//
// Environment variables:
//   - OML_DOMAIN (OML_EXP_ID is a deprecated alias)
//   - OML_NAME or OML_ID for the node id
//   - OML_COLLECT (OML_SERVER is a deprecated alias)
//   - OML_URL is rejected
package config
