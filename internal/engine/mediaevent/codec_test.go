package mediaevent

import (
	"errors"
	"testing"
)

func TestDecodeJoin(t *testing.T) {
	raw := []byte(`{"type":"join","data":{"metadata":{"displayName":"Alice"}}}`)

	ev, typeTag, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if typeTag != InboundJoin {
		t.Fatalf("typeTag = %q, want join", typeTag)
	}

	var data JoinData
	if err := DecodeData(ev, &data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.Metadata["displayName"] != "Alice" {
		t.Fatalf("Metadata[displayName] = %v, want Alice", data.Metadata["displayName"])
	}
}

func TestDecodeMissingType(t *testing.T) {
	_, _, err := Decode([]byte(`{"data":{}}`))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("err = %v, want ErrProtocol", err)
	}
}

func TestDecodeMalformedJSON(t *testing.T) {
	_, _, err := Decode([]byte(`{"type":"join", not json`))
	if !errors.Is(err, ErrProtocol) {
		t.Fatalf("err = %v, want ErrProtocol", err)
	}
}

func TestDecodeDataEmptyIsNoOp(t *testing.T) {
	var data JoinData
	if err := DecodeData(Inbound{}, &data); err != nil {
		t.Fatalf("DecodeData on an empty payload: %v", err)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw, err := Encode(Outbound{
		To:   "peer-1",
		Type: OutboundPeerJoined,
		Data: PeerJoinedData{Peer: PeerRef{ID: "peer-2", Metadata: map[string]any{"k": "v"}}},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	ev, typeTag, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode(Encode(...)): %v", err)
	}
	if typeTag != InboundType(OutboundPeerJoined) {
		t.Fatalf("typeTag = %q, want %q", typeTag, OutboundPeerJoined)
	}

	var data PeerJoinedData
	if err := DecodeData(ev, &data); err != nil {
		t.Fatalf("DecodeData: %v", err)
	}
	if data.Peer.ID != "peer-2" || data.Peer.Metadata["k"] != "v" {
		t.Fatalf("got %+v", data)
	}
}

func TestEncodeBroadcastTarget(t *testing.T) {
	if Broadcast != "" {
		t.Fatalf("Broadcast = %q, want empty string", Broadcast)
	}
}
