// Package websocket provides the live WebSocket transport for the Huarong
// Pass server.
//
// A Hub keeps the clients attached to each session. Every state change made
// through any transport is pushed to all clients of that session, so several
// browsers watching one puzzle stay in step.
//
// Message Protocol:
//
// Clients send actions, one JSON object per frame:
//
//	{"action": "drag", "piece": "bing1", "dx": 0, "dy": 35}
//	{"action": "drag_end"}
//	{"action": "drag_cancel"}
//
// dx and dy are the pointer displacement since the previous update and must
// lie on one axis. The hub answers with events:
//
//	drag          the board after a drag update
//	move          a completed gesture and the board after it
//	drag_cancel   the board after a gesture was dropped
//	state_update  a change made through REST or MCP
//	error         a rejected action, sent to the sender only
//
// Usage:
//
//	hub := websocket.NewHub(gameService)
//	go hub.Run(ctx)
//
//	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
package websocket
