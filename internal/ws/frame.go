// Package ws carries the realtime messaging surface: framed WebSocket
// sessions, per-frame authorization and topic broadcast.
package ws

import (
	"encoding/json"
	"strings"
)

// FrameType classifies a client frame.
type FrameType string

const (
	FrameConnect     FrameType = "CONNECT"
	FrameSend        FrameType = "SEND"
	FrameSubscribe   FrameType = "SUBSCRIBE"
	FrameUnsubscribe FrameType = "UNSUBSCRIBE"
	FrameHeartbeat   FrameType = "HEARTBEAT"
	FrameDisconnect  FrameType = "DISCONNECT"

	// Server-originated frames.
	FrameMessage FrameType = "MESSAGE"
	FrameError   FrameType = "ERROR"
)

// Frame is one message on a realtime session.
type Frame struct {
	Type        FrameType         `json:"type"`
	Destination string            `json:"destination,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
}

const (
	// appPrefix marks client-to-server application destinations.
	appPrefix = "/app/"
	// topicPrefix marks broadcast destinations clients subscribe to.
	topicPrefix = "/topic/"
)

// IsAppDestination reports whether d is a client-to-server application
// destination.
func IsAppDestination(d string) bool { return strings.HasPrefix(d, appPrefix) }

// IsTopicDestination reports whether d is a broadcast topic.
func IsTopicDestination(d string) bool { return strings.HasPrefix(d, topicPrefix) }
