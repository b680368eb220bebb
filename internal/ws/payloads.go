package ws

import "taskboard/internal/tasks"

// client → server. Which fields matter depends on Type.
type InboundMessage struct {
	Type   string `json:"type"`
	ID     string `json:"id,omitempty"`
	Body   string `json:"body,omitempty"`
	Public bool   `json:"public,omitempty"`
}

// server → client
type ReadyPayload struct {
	Type     string `json:"type"`
	Identity string `json:"identity"`
}

type SnapshotPayload struct {
	Type   string       `json:"type"`
	Tasks  []tasks.Item `json:"tasks"`
	Digest string       `json:"digest"`
}

type ClipboardPayload struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type DraftPayload struct {
	Type   string `json:"type"`
	Body   string `json:"body"`
	Public bool   `json:"public"`
}

type ErrorPayload struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}
