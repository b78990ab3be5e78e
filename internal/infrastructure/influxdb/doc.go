// Package influxdb mirrors injected measurement samples into InfluxDB v2.
//
// The mirror is optional and runs beside the protocol channels: every sample
// that reaches a channel is also written as a point whose measurement is the
// point name and whose tags identify the sender (domain, sender, app).
//
// Writes use the client's non-blocking batched API. Failures are reported
// through SetOnError and never reach the code injecting samples.
//
// Usage:
//
//	mirror, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer mirror.Close()
//	mirror.SetIdentity(domain, nodeID, appName)
package influxdb
