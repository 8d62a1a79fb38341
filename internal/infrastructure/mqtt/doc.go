// Package mqtt publishes the local state mirror to an MQTT broker.
//
// This package manages:
//   - Connection to a broker with auto-reconnect
//   - Publishing with QoS and retained-message control
//   - A retained online/offline status topic backed by a Last Will
//   - The mirror topic hierarchy (see Topics)
//
// The mirror is one-way. Nothing published here reaches the cloud, and
// nothing is subscribed.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().DeviceEvent(deviceID, "setPowerState")
//	err = client.PublishEvent(topic, []byte(`{"state":"On"}`))
package mqtt
