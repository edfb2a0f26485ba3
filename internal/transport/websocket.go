// Package transport is the demo-only out-of-scope transport spec.md §1
// explicitly leaves external: a gorilla/websocket connection per Peer
// Endpoint, registered as an engine.Observer, filtering the fan-out every
// observer receives down to the messages addressed to its own peer.
package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/relaymesh/engine/internal/engine"
	"github.com/relaymesh/engine/internal/engine/registry"
)

const (
	sendQueueSize = 256
	writeWait     = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Session is one peer's websocket connection to an Engine. It registers
// itself as an Observer and implements Notify by filtering every
// registry.Message down to the ones addressed to its own peer, matching
// the fan-out-then-filter-by-target pattern spec.md §4.6 describes for
// Media Events (and which this demo reuses for endpoint controls).
type Session struct {
	peerID string
	conn   *websocket.Conn
	engine *engine.Engine
	send   chan []byte
	logger *logrus.Entry
}

// wireFrame is the envelope this demo transport puts on the wire in
// addition to the opaque Media Event bytes, so a client can tell a Media
// Event apart from an endpoint control without peeking into the payload.
type wireFrame struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Accept upgrades an HTTP request to a websocket, assigns the connection a
// peer ID (a caller-supplied one via query param, or a freshly minted xid),
// and drives its read/write pumps until the peer leaves or the socket dies.
func Accept(eng *engine.Engine, w http.ResponseWriter, r *http.Request) {
	peerID := r.URL.Query().Get("peer_id")
	if peerID == "" {
		peerID = xid.New().String()
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.WithError(err).Warn("websocket upgrade failed")
		return
	}

	s := &Session{
		peerID: peerID,
		conn:   conn,
		engine: eng,
		send:   make(chan []byte, sendQueueSize),
		logger: logrus.WithField("peer_id", peerID),
	}

	eng.Register(s)
	defer eng.Unregister(s)

	go s.writePump()
	s.readPump()
}

// Notify implements engine.Observer. A slow client never blocks the
// Engine: the Registry already queues per-observer and drops on overflow,
// so this send only ever contends with this one socket's own backlog.
func (s *Session) Notify(msg registry.Message) {
	frame, ok := s.frameFor(msg)
	if !ok {
		return
	}

	raw, err := json.Marshal(frame)
	if err != nil {
		s.logger.WithError(err).Warn("failed to marshal outbound frame")
		return
	}

	select {
	case s.send <- raw:
	default:
		s.logger.Warn("dropping outbound frame, this connection's send queue is full")
	}
}

// frameFor filters msg down to what this peer should actually receive, and
// shapes it into the wire envelope. A broadcast MediaEvent (To == "") or
// one addressed to this peer passes through; anything else is filtered.
func (s *Session) frameFor(msg registry.Message) (wireFrame, bool) {
	switch msg.Kind {
	case registry.KindMediaEvent:
		ev := msg.MediaEvent
		if ev.To != mediaEventBroadcast && ev.To != s.peerID {
			return wireFrame{}, false
		}
		return wireFrame{Kind: "mediaEvent", Data: ev.Data}, true

	case registry.KindNewTracks:
		if msg.NewTracks.To != s.peerID {
			return wireFrame{}, false
		}
		return s.marshalControl("newTracks", msg.NewTracks)

	case registry.KindRemoveTracks:
		if msg.RemoveTracks.To != s.peerID {
			return wireFrame{}, false
		}
		return s.marshalControl("removeTracks", msg.RemoveTracks)

	case registry.KindSetDisplayManager:
		if msg.SetDisplayManager.To != s.peerID {
			return wireFrame{}, false
		}
		return s.marshalControl("setDisplayManager", msg.SetDisplayManager)

	case registry.KindKeyFrameRequest:
		if msg.KeyFrameRequest.To != s.peerID {
			return wireFrame{}, false
		}
		return s.marshalControl("keyFrameRequest", msg.KeyFrameRequest)

	default:
		// NewPeer/PeerLeft/EndpointCrashed are process-level observer
		// messages (spec.md §4.7); this demo transport doesn't forward
		// them to clients, only to in-process observers like logging.
		return wireFrame{}, false
	}
}

const mediaEventBroadcast = ""

func (s *Session) marshalControl(kind string, v any) (wireFrame, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.WithError(err).WithField("kind", kind).Warn("failed to marshal endpoint control")
		return wireFrame{}, false
	}
	return wireFrame{Kind: kind, Data: data}, true
}

func (s *Session) readPump() {
	defer s.engine.RemovePeer(s.peerID, "connection closed")

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.WithError(err).Debug("websocket read ended")
			return
		}
		s.engine.ReceiveMediaEvent(s.peerID, message)
	}
}

func (s *Session) writePump() {
	defer s.conn.Close()

	for message := range s.send {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			s.logger.WithError(err).Debug("websocket write failed")
			return
		}
	}
}
