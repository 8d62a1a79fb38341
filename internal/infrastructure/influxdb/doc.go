// Package influxdb writes link telemetry to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library. Writes are
// non-blocking and batched; failures arrive through SetOnError.
//
// Two measurements are written:
//   - device_event: numeric values of events and responses, tagged by
//     device_id, action and kind
//   - link_state: session state transitions with a 0/1 connected field
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteLinkState("connected", true, time.Now())
package influxdb
