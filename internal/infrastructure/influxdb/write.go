package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/georgevio/oml4go/internal/protocol"
)

// seqField carries the sample sequence number alongside the values.
const seqField = "oml_seq"

// MirrorSample writes one injected sample as a point.
//
// The measurement is the point name, tags are the sender identity and each
// schema field becomes a point field of the matching type. The write is
// non-blocking; data is batched and sent asynchronously.
//
// Example:
//
//	client.MirrorSample("cpu", []protocol.Field{{Name: "load", Type: protocol.TypeDouble}},
//	    1, []any{0.42}, time.Now())
func (c *Client) MirrorSample(point string, fields []protocol.Field, seq uint64, values []any, at time.Time) {
	if !c.IsConnected() || len(fields) != len(values) {
		return
	}

	c.mu.RLock()
	tags := make(map[string]string, len(c.tags))
	for k, v := range c.tags {
		tags[k] = v
	}
	c.mu.RUnlock()

	pointFields := make(map[string]any, len(fields)+1)
	pointFields[seqField] = seq
	for i, f := range fields {
		pointFields[f.Name] = values[i]
	}

	c.writeAPI.WritePoint(write.NewPoint(point, tags, pointFields, at))
}
