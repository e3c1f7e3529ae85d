// Package influxdb records BudgetWise operational metrics in InfluxDB v2.
//
// It wraps influxdb-client-go's non-blocking write API with two
// measurements: auth_events (signups, logins, failures, resets, role
// changes) and http_requests (per-route status and latency). The
// integration is optional; Connect returns ErrDisabled when the influxdb
// config section is off and callers carry on without metrics.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteAuthEvent("login", "USER")
//
// Writes are batched according to batch_size and flush_interval; write
// errors arrive asynchronously through SetOnError.
package influxdb
