// Package oml is a measurement client for the OML text protocol.
//
// Applications define measurement points, start the client and inject
// samples. Samples are queued per channel and written asynchronously to
// files, TCP collectors, MQTT topics or SQLite spools; a broken TCP
// connection is re-established and the protocol header resent.
//
// Usage:
//
//	client, rest, err := oml.NewFromArgs("probe", os.Args[1:])
//	if err != nil {
//	    return err
//	}
//	cpu, _ := client.Define("cpu")
//	_ = cpu.Param("load", "double")
//
//	if err := client.Start(ctx); err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	_ = cpu.Inject(0.42)
//
// Identity comes from --oml-domain, --oml-id and the app name, or from the
// OML_DOMAIN, OML_NAME and OML_COLLECT environment variables. OML_CONFIG
// names an optional YAML configuration file.
package oml
