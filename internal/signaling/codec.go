package signaling

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/coder/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns envelopes into websocket frames and back
type Codec interface {
	Name() string
	FrameType() websocket.MessageType
	Encode(Message) ([]byte, error)
	Decode([]byte) (Message, error)
}

// CodecFor picks a codec by the name a client asked for. JSON is the default.
func CodecFor(name string) Codec {
	switch name {
	case "msgpack":
		return MsgpackCodec{}
	default:
		return JSONCodec{}
	}
}

type JSONCodec struct{}

func (JSONCodec) Name() string                     { return "json" }
func (JSONCodec) FrameType() websocket.MessageType { return websocket.MessageText }

func (JSONCodec) Encode(m Message) ([]byte, error) {
	return json.Marshal(m)
}

// Decode keeps numbers as json.Number so ids survive without float rounding
func (JSONCodec) Decode(data []byte) (Message, error) {
	var m Message
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return Message{}, fmt.Errorf("failed to decode json frame: %w", err)
	}
	if m.Event == "" {
		return Message{}, fmt.Errorf("frame has no event name")
	}
	return m, nil
}

// MsgpackCodec carries the same envelope in binary frames. Struct fields use their json names.
type MsgpackCodec struct{}

func (MsgpackCodec) Name() string                     { return "msgpack" }
func (MsgpackCodec) FrameType() websocket.MessageType { return websocket.MessageBinary }

func (MsgpackCodec) Encode(m Message) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode msgpack frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (MsgpackCodec) Decode(data []byte) (Message, error) {
	var m Message
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(&m); err != nil {
		return Message{}, fmt.Errorf("failed to decode msgpack frame: %w", err)
	}
	if m.Event == "" {
		return Message{}, fmt.Errorf("frame has no event name")
	}
	return m, nil
}
