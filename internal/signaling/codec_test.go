package signaling

import (
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodecFor(t *testing.T) {
	assert.Equal(t, "json", CodecFor("").Name())
	assert.Equal(t, "json", CodecFor("xml").Name())
	assert.Equal(t, "msgpack", CodecFor("msgpack").Name())

	assert.Equal(t, websocket.MessageText, JSONCodec{}.FrameType())
	assert.Equal(t, websocket.MessageBinary, MsgpackCodec{}.FrameType())
}

func TestJSONCodecDecodeKeepsNumericIDs(t *testing.T) {
	msg, err := JSONCodec{}.Decode([]byte(`{"event":"join-room","args":["r1",9007199254740993,"Bob"]}`))
	require.NoError(t, err)

	assert.Equal(t, EventJoinRoom, msg.Event)
	assert.Equal(t, "r1", msg.Text(0))
	assert.Equal(t, "9007199254740993", msg.Text(1))
	assert.Equal(t, "Bob", msg.Text(2))
}

func TestJSONCodecRejectsBadFrames(t *testing.T) {
	_, err := JSONCodec{}.Decode([]byte(`not json`))
	assert.Error(t, err)

	_, err = JSONCodec{}.Decode([]byte(`{"args":[]}`))
	assert.Error(t, err)
}

func TestJSONCodecEncode(t *testing.T) {
	data, err := JSONCodec{}.Encode(NewMessage(EventCallUser, CallUser{
		TargetUserID:       "u1",
		TargetUserName:     "Ann",
		TargetConnectionID: "c1",
	}))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"event":"call-user","args":[{"targetUserId":"u1","targetUserName":"Ann","targetConnectionId":"c1"}]}`,
		string(data),
	)

	data, err = JSONCodec{}.Encode(NewMessage(EventLeaveRoom))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"leave-room","args":[]}`, string(data))
}

func TestMsgpackCodecRoundTrip(t *testing.T) {
	codec := MsgpackCodec{}
	ts := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	data, err := codec.Encode(NewMessage(EventReceiveMessage, ChatMessage{
		Message:   "hi",
		UserID:    "42",
		UserName:  "Ann",
		IsCreator: true,
		Timestamp: ts,
	}, 42, true))
	require.NoError(t, err)

	msg, err := codec.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, EventReceiveMessage, msg.Event)
	require.Len(t, msg.Args, 3)

	chat, ok := msg.Arg(0).(map[string]any)
	require.True(t, ok, "got %T", msg.Arg(0))
	assert.Equal(t, "hi", chat["message"])
	assert.Equal(t, "42", chat["userId"])
	assert.Equal(t, true, chat["isCreator"])

	assert.Equal(t, "42", msg.Text(1))
	on, ok := msg.Bool(2)
	assert.True(t, ok)
	assert.True(t, on)
}

func TestMsgpackCodecRejectsBadFrames(t *testing.T) {
	_, err := MsgpackCodec{}.Decode([]byte{0xc1})
	assert.Error(t, err)
}
