package mediaevent

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// ErrProtocol is returned for any malformed inbound Media Event. Per
// spec.md §7, this is logged and dropped by the caller — the codec itself
// never terminates the connection.
var ErrProtocol = fmt.Errorf("malformed media event")

// Decode parses a raw inbound frame. It uses gjson to cheaply peek at the
// `type` tag before committing to a full json.Unmarshal of the envelope,
// so a Dispatcher can log/trace the event type even if the body turns out
// to be malformed.
func Decode(raw []byte) (Inbound, InboundType, error) {
	typeTag := InboundType(gjson.GetBytes(raw, "type").String())
	if typeTag == "" {
		return Inbound{}, typeTag, fmt.Errorf("%w: missing type", ErrProtocol)
	}

	var ev Inbound
	if err := json.Unmarshal(raw, &ev); err != nil {
		return Inbound{}, typeTag, fmt.Errorf("%w: %v", ErrProtocol, err)
	}

	return ev, typeTag, nil
}

// DecodeData unmarshals an inbound event's opaque `data` field into dst.
func DecodeData(ev Inbound, dst any) error {
	if len(ev.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(ev.Data, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	return nil
}

// Encode serializes an outbound Media Event into the opaque wire frame
// delivered to observers. The envelope is assembled with sjson so that the
// `data` payload (already marshaled on its own) is spliced in as raw JSON
// rather than being re-walked by a second full Marshal of the envelope.
func Encode(ev Outbound) ([]byte, error) {
	dataJSON, err := json.Marshal(ev.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media event data: %w", err)
	}

	frame, err := sjson.SetBytes([]byte(`{}`), "type", ev.Type)
	if err != nil {
		return nil, err
	}

	frame, err = sjson.SetRawBytes(frame, "data", dataJSON)
	if err != nil {
		return nil, err
	}

	return frame, nil
}
