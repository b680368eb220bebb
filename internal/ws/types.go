package ws

const (
	// client - server
	MsgCreate = "create"
	MsgDelete = "delete"
	MsgShare  = "share"
	MsgDraft  = "draft"
	MsgPing   = "ping"

	// server - client
	MsgReady     = "ready"
	MsgSnapshot  = "snapshot"
	MsgClipboard = "clipboard"
	MsgPong      = "pong"
	MsgError     = "error"
)
