// Package ws streams navigator lifecycle events to debug clients.
//
// This package implements the /stream endpoint: a hub receives every
// transition from the navigator and fans it out to connected WebSocket
// clients. The hub's Publish method is the navigator listener; it runs
// on the UI thread, so every queue along the path drops frames instead
// of blocking navigation.
//
// Message Types (Client → Server):
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection established
//   - transition: One lifecycle transition (launch id, component, hook,
//     from/to state, animation flag, timing)
//   - pong: Keep-alive reply
//   - error: Unrecognized client frame
//
// Example Usage:
//
//	hub := ws.NewHub(logger, metrics)
//	go hub.Run(ctx)
//	nav.AddListener(hub.Publish)
//
//	handler := ws.NewHandler(hub, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
