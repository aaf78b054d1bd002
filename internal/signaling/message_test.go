package signaling

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageArgs(t *testing.T) {
	msg := NewMessage(EventToggleVideo, "  r1 ", json.Number("7"), "false", nil)

	assert.Equal(t, "r1", msg.Text(0))
	assert.Equal(t, "7", msg.Text(1))
	assert.Equal(t, "", msg.Text(3))
	assert.Equal(t, "", msg.Text(10))
	assert.Nil(t, msg.Arg(-1))
	assert.True(t, msg.HasArg(2))
	assert.False(t, msg.HasArg(3))
}

func TestMessageBool(t *testing.T) {
	tests := []struct {
		name   string
		arg    any
		want   bool
		wantOK bool
	}{
		{"bool", true, true, true},
		{"string", "false", false, true},
		{"json number", json.Number("1"), true, true},
		{"float zero", 0.0, false, true},
		{"int8", int8(1), true, true},
		{"garbage string", "maybe", false, false},
		{"missing", nil, false, false},
		{"object", map[string]any{}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NewMessage("x", tt.arg).Bool(0)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestNewMessageNeverHasNilArgs(t *testing.T) {
	msg := NewMessage(EventLeaveRoom)
	assert.NotNil(t, msg.Args)
	assert.Empty(t, msg.Args)
}
