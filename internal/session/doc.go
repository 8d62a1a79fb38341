// Package session orchestrates one device-side cloud session.
//
// A Session owns the device registry, the signed-message codec, the RX and
// TX queues and the WebSocket transport. The application calls Handle from
// a single polling goroutine every 10-50ms; the transport's reader
// goroutine only ever pushes received text messages into the RX queue.
//
// # Data flow
//
//	app ──SendEvent──▶ codec.Seal ──▶ TX queue ──Handle──▶ transport.Send
//
//	transport reader ──▶ RX queue ──Handle──▶ codec.Verify ──▶ Device.HandleRequest
//	                                                   │
//	                                 codec.NewResponse ◀┘──▶ TX queue
//
// # States
//
//	disconnected → wifi_connecting → wifi_connected → ws_connecting → connected
//	                       │                                 │
//	                       └──────────────▶ error ◀──────────┘
//
// # Usage
//
//	sess, err := session.New(session.Config{
//	    AppKey:    cfg.Cloud.AppKey,
//	    AppSecret: cfg.Cloud.AppSecret,
//	}, session.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	_ = sess.AddDevice(sw)
//	if err := sess.Begin(ctx); err != nil {
//	    return err
//	}
//	defer sess.Stop()
//
//	for range ticker.C {
//	    sess.Handle()
//	}
package session
