package types

import "time"

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

type Session struct {
	ID        string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	Catalog   string    `json:"catalog"`

	ClientConnected bool       `json:"client_connected"`
	ClientAgent     string     `json:"client_agent,omitempty"`
	ClientSeenAt    *time.Time `json:"client_seen_at,omitempty"`
}
