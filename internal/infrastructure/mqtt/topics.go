package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of all mirror topics.
const DefaultTopicPrefix = "sinriclink"

// Topics builds the mirror topic hierarchy under a prefix:
//
//	<prefix>/status                              link online/offline (retained, LWT)
//	<prefix>/session/state                       session state (retained)
//	<prefix>/device/<id>/event/<action>          events queued for the cloud
//	<prefix>/device/<id>/response/<action>       responses to cloud requests
//	<prefix>/device/<id>/state/<action>          last successful value (retained)
type Topics struct {
	prefix string
}

// NewTopics returns a builder for prefix. An empty prefix selects
// DefaultTopicPrefix. Trailing slashes are removed.
func NewTopics(prefix string) (Topics, error) {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	if strings.ContainsAny(prefix, "+#") {
		return Topics{}, fmt.Errorf("%w: prefix %q contains a wildcard", ErrInvalidTopic, prefix)
	}
	return Topics{prefix: prefix}, nil
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Status returns the link status topic carrying the LWT.
func (t Topics) Status() string {
	return t.Prefix() + "/status"
}

// SessionState returns the session state topic.
func (t Topics) SessionState() string {
	return t.Prefix() + "/session/state"
}

// DeviceEvent returns the topic for an event emitted by a device.
//
// Example: sinriclink/device/5dc1564130a1b2c3d4e5f601/event/setPowerState
func (t Topics) DeviceEvent(deviceID, action string) string {
	return fmt.Sprintf("%s/device/%s/event/%s", t.Prefix(), deviceID, action)
}

// DeviceResponse returns the topic for a response to a cloud request.
func (t Topics) DeviceResponse(deviceID, action string) string {
	return fmt.Sprintf("%s/device/%s/response/%s", t.Prefix(), deviceID, action)
}

// DeviceState returns the retained topic holding the last value for action.
func (t Topics) DeviceState(deviceID, action string) string {
	return fmt.Sprintf("%s/device/%s/state/%s", t.Prefix(), deviceID, action)
}

// AllDevices returns a wildcard matching every device topic.
func (t Topics) AllDevices() string {
	return t.Prefix() + "/device/#"
}
