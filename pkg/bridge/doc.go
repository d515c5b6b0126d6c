// Package bridge connects the daemon to the browser extension over a
// WebSocket.
//
// The extension is a thin relay: it forwards tab lifecycle events and
// captured-link messages, executes tab calls and updates the toolbar. The
// Server side implements tabs.Service, so the schedulers talk to the real
// browser exactly like they talk to the in-memory fake in tests.
//
// Every frame is a JSON Envelope:
//
//	{"v":1,"type":"tabs.reload","msg_id":"…","payload":{"tab_id":12}}
//	{"v":1,"type":"result","msg_id":"…","reply_to":"…","payload":{"ok":true}}
//
// Requests (tabs.*) are answered with a result envelope whose reply_to is
// the request's msg_id. Toolbar updates (ui.*) are notifications and are
// not answered. The remote error code "not_found" maps to
// tabs.ErrTabNotFound.
//
// Only one extension connection is active at a time. A new connection
// replaces the previous one; calls pending on the old connection fail with
// ErrNotConnected. Incoming tab events are dispatched in order on the
// connection's read goroutine, so handlers must not block on tab calls.
// Messages are dispatched on their own goroutine and may call back.
package bridge
