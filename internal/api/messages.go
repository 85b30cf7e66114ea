package api

import (
	"github.com/framelab/framebench-web/internal/adapter"
	"github.com/framelab/framebench-web/internal/bench"
)

// HelloMessage is the initial payload sent on WebSocket connection.
type HelloMessage struct {
	Type       string          `json:"type"`
	IntervalMS int             `json:"interval_ms"`
	Adapters   []adapter.Info  `json:"adapters"`
	Features   map[string]bool `json:"features"`
}

// NewHelloMessage constructs a hello payload.
func NewHelloMessage(intervalMS int, adapters []adapter.Info, features map[string]bool) HelloMessage {
	return HelloMessage{
		Type:       "hello",
		IntervalMS: intervalMS,
		Adapters:   adapters,
		Features:   features,
	}
}

// StatsMessage wraps a benchmark window snapshot for transport.
type StatsMessage struct {
	Type string `json:"type"`
	bench.Snapshot
}

// NewStatsMessage constructs a stats payload.
func NewStatsMessage(snapshot bench.Snapshot) StatsMessage {
	return StatsMessage{
		Type:     "stats",
		Snapshot: snapshot,
	}
}

// ResetAckMessage confirms that the benchmark window was restarted.
type ResetAckMessage struct {
	Type string `json:"type"`
}

// ErrorMessage communicates an error condition to the client.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ClientMessage is a generic envelope used for decoding inbound client messages.
type ClientMessage struct {
	Type string `json:"type"`
}

// PongMessage is the response to a ping.
type PongMessage struct {
	Type string `json:"type"`
}
