// Package device provides the virtual devices exposed to the cloud.
//
// A device is identified by a 24-character ID issued by the cloud portal
// and carries one or more capabilities. Capabilities answer cloud requests
// (setPowerState, setBrightness, setLockState, ...) and raise rate-limited
// events when the physical state changes locally.
//
// # Key Types
//
//   - Device: the interface the session dispatches requests to
//   - Base: shared identity, logger and event sender, embedded by every type
//   - EventSender: implemented by the session; devices emit events through it
//   - Switch, DimSwitch, Lock, TemperatureSensor, ContactSensor, MotionSensor,
//     Doorbell: device types
//
// # Usage
//
//	sw, err := device.NewSwitch("5dc1564130xxxxxxxxxxxxxx", device.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	sw.OnPowerState(func(id string, on bool) (bool, error) {
//	    return on, relay.Set(on)
//	})
//
//	if err := sess.AddDevice(sw); err != nil {
//	    return err
//	}
//
//	// Later, when the wall switch is pressed:
//	err = sw.SendPowerStateEvent(true, protocol.CausePhysicalInteraction)
//
// # Thread Safety
//
// Request handlers run on the goroutine that calls Session.Handle. Event
// senders may be called from any goroutine; capability state is guarded by
// a mutex.
package device
