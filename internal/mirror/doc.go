// Package mirror forwards session activity to local sinks: an MQTT broker
// for home automation and InfluxDB for telemetry. Each sink is a
// session.Observer.
//
// Observers run on the session loop, so the MQTT mirror hands publishes to
// its own goroutine and drops (and counts) them when that goroutine falls
// behind. The InfluxDB write API is already non-blocking.
package mirror
