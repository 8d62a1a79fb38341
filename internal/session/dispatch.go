package session

import (
	"fmt"

	"github.com/nerrad567/sinric-link/internal/device"
	"github.com/nerrad567/sinric-link/internal/protocol"
)

// process verifies one received envelope and dispatches requests.
// Failures are logged and the message is dropped.
func (s *Session) process(raw []byte) {
	msg, err := s.codec.Verify(raw)
	if err != nil {
		s.invalid.Add(1)
		s.logger.Warn("dropping message", "error", err)
		return
	}

	if msg.Type != protocol.TypeRequest {
		s.logger.Debug("ignoring non-request message", "type", string(msg.Type), "action", msg.Action)
		return
	}
	if msg.DeviceID == "" || msg.Action == "" {
		s.invalid.Add(1)
		s.logger.Warn("dropping request without device id or action")
		return
	}

	d, ok := s.FindDevice(msg.DeviceID)
	if !ok {
		s.unknownDevices.Add(1)
		s.logger.Warn("request for unknown device", "device_id", msg.DeviceID, "action", msg.Action)
		return
	}

	s.logger.Debug("request", "device_id", msg.DeviceID, "action", msg.Action)
	value, success := s.invoke(d, msg)

	resp := s.codec.NewResponse(msg, success, value)
	if err := s.enqueue(resp); err != nil {
		s.logger.Error("response not queued", "device_id", msg.DeviceID, "action", msg.Action, "error", err)
		return
	}

	s.requestsHandled.Add(1)
	if !success {
		s.requestsFailed.Add(1)
	}
	s.emitActivity(Activity{
		Kind:     ActivityRequest,
		DeviceID: msg.DeviceID,
		Action:   msg.Action,
		Success:  success,
		Value:    s.rawValue(resp.Value),
		At:       s.now(),
	})
}

// invoke calls the device handler. A panicking handler fails the request.
func (s *Session) invoke(d device.Device, msg *protocol.Message) (value any, success bool) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("request handler panic", "device_id", msg.DeviceID, "action", msg.Action, "panic", fmt.Sprint(r))
			value, success = nil, false
		}
	}()
	return d.HandleRequest(msg)
}
