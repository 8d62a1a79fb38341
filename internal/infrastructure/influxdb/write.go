package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementDeviceEvent = "device_event"
	MeasurementLinkState   = "link_state"
)

// WriteDeviceEvent records one numeric snapshot of a device event or
// response. Non-numeric values should be mapped to numbers by the caller
// (for example power state to 0/1). Empty fields are skipped.
//
// Example:
//
//	client.WriteDeviceEvent(id, "currentTemperature", "event",
//	    map[string]any{"temperature": 21.5, "humidity": 40.0}, time.Now())
func (c *Client) WriteDeviceEvent(deviceID, action, kind string, fields map[string]any, at time.Time) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		MeasurementDeviceEvent,
		map[string]string{
			"device_id": deviceID,
			"action":    action,
			"kind":      kind,
		},
		fields,
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WriteLinkState records a session state transition. connected is stored
// as 0/1 so it can be graphed as uptime.
func (c *Client) WriteLinkState(state string, connected bool, at time.Time) {
	if !c.IsConnected() {
		return
	}

	up := 0
	if connected {
		up = 1
	}
	point := write.NewPoint(
		MeasurementLinkState,
		map[string]string{"state": state},
		map[string]any{"connected": up},
		at,
	)
	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with a specific timestamp.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, at))
}
