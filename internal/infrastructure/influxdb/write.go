package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementAuthEvents   = "auth_events"
	MeasurementHTTPRequests = "http_requests"
)

// WriteAuthEvent records one security event, such as a login or a failed
// login, tagged by action and the role involved. Role may be empty for
// anonymous events.
func (c *Client) WriteAuthEvent(action, role string) {
	tags := map[string]string{"action": action}
	if role != "" {
		tags["role"] = role
	}
	c.WritePoint(MeasurementAuthEvents, tags, map[string]any{"count": 1})
}

// WriteRequestMetric records the outcome and latency of one API request.
// route should be the matched route pattern, not the raw path, to keep tag
// cardinality bounded.
func (c *Client) WriteRequestMetric(method, route string, status int, duration time.Duration) {
	c.WritePoint(MeasurementHTTPRequests,
		map[string]string{
			"method": method,
			"route":  route,
			"status": strconv.Itoa(status),
		},
		map[string]any{
			"duration_ms": float64(duration.Microseconds()) / 1000, //nolint:mnd // µs to ms
		},
	)
}

// WritePoint buffers one point stamped now. Points written after Close
// are discarded.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any) {
	if !c.IsConnected() {
		return
	}
	c.writer.WritePoint(write.NewPoint(measurement, tags, fields, c.now()))
}
