package notify

import (
	"github.com/teslashibe/go-sapien/internal/log"
	"github.com/teslashibe/go-sapien/pkg/hub"
	"github.com/teslashibe/go-sapien/pkg/protocol"
)

// HubSink broadcasts each notice to websocket clients as a protocol event.
type HubSink struct {
	Hub *hub.Hub
}

// Notify implements Sink.
func (s HubSink) Notify(n Notice) {
	msg, err := protocol.NewEventMessage(string(n.Event), n.Action, n.CommandID)
	if err != nil {
		log.Component("notify").Warn("encode event", "err", err)
		return
	}
	if err := s.Hub.BroadcastMessage(msg); err != nil {
		log.Component("notify").Warn("broadcast event", "err", err)
	}
}
