// Package ratelimit spaces out repeated outbound events from a device
// capability.
//
// A Limiter is not a token bucket. Each allowed call schedules the next
// allowed instant one minimum interval ahead. Calls arriving early are
// blocked and counted; when the count of early calls exceeds a quarter of
// the interval (in milliseconds) the next allowed call adds a full extra
// interval of backoff. Any allowed call made without that many violations
// clears the backoff again, so a well-behaved caller recovers immediately.
//
// # Profiles
//
//   - ProfileState (1s): on/off, brightness, lock and contact state changes
//   - ProfileSensor (60s): periodic readings such as temperature
//
// # Usage
//
//	limiter := ratelimit.New(ratelimit.ProfileState)
//	if !limiter.Allow() {
//	    return ErrRateLimited
//	}
//	sender.SendEvent(...)
package ratelimit
