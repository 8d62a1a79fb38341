// Package protocol implements the signed JSON envelope exchanged with the
// cloud over the WebSocket.
//
// Every message has the shape:
//
//	{"header":{"payloadVersion":2,"signatureVersion":1},
//	 "payload":{...},
//	 "signature":{"HMAC":"<base64 HMAC-SHA256>"}}
//
// The HMAC is computed with the app secret over the exact bytes of the
// payload value as transmitted, i.e. everything between the literal
// `"payload":` and `,"signature"`. Verification re-extracts that byte range
// from the received text instead of re-serialising the decoded payload,
// because two JSON encoders need not produce identical bytes.
//
// # Message kinds
//
//   - request: sent by the cloud, carries action, deviceId, replyToken, value
//   - response: sent by the device, answers one request (copies its
//     correlation fields, adds a fresh message id and success flag)
//   - event: sent by the device unprompted, with a fresh replyToken and a cause
//
// The codec does not validate action semantics; range checks belong to the
// device capabilities.
package protocol
