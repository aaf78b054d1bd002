package room

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// UserID is the canonical identity of a user. Every identity that enters the
// process (event arguments, meeting records, token claims) is normalized to it
// once, and all comparisons happen on this form.
type UserID string

func (u UserID) String() string { return string(u) }

// ConnID identifies a single transport connection
type ConnID string

func (c ConnID) String() string { return string(c) }

// NormalizeUserID converts a raw identity as it arrives off the wire into a UserID.
// Numbers decoded by JSON or msgpack become their integer text, so 42, 42.0 and "42"
// all name the same user.
func NormalizeUserID(v any) UserID {
	switch id := v.(type) {
	case nil:
		return ""
	case UserID:
		return UserID(strings.TrimSpace(string(id)))
	case string:
		return UserID(strings.TrimSpace(id))
	case []byte:
		return UserID(strings.TrimSpace(string(id)))
	case json.Number:
		if i, err := id.Int64(); err == nil {
			return UserID(strconv.FormatInt(i, 10))
		}
		if f, err := id.Float64(); err == nil {
			return normalizeFloat(f)
		}
		return UserID(id.String())
	case float64:
		return normalizeFloat(id)
	case float32:
		return normalizeFloat(float64(id))
	case int:
		return UserID(strconv.FormatInt(int64(id), 10))
	case int8:
		return UserID(strconv.FormatInt(int64(id), 10))
	case int16:
		return UserID(strconv.FormatInt(int64(id), 10))
	case int32:
		return UserID(strconv.FormatInt(int64(id), 10))
	case int64:
		return UserID(strconv.FormatInt(id, 10))
	case uint:
		return UserID(strconv.FormatUint(uint64(id), 10))
	case uint8:
		return UserID(strconv.FormatUint(uint64(id), 10))
	case uint16:
		return UserID(strconv.FormatUint(uint64(id), 10))
	case uint32:
		return UserID(strconv.FormatUint(uint64(id), 10))
	case uint64:
		return UserID(strconv.FormatUint(id, 10))
	case fmt.Stringer:
		return UserID(strings.TrimSpace(id.String()))
	default:
		return UserID(strings.TrimSpace(fmt.Sprint(id)))
	}
}

func normalizeFloat(f float64) UserID {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return UserID(strconv.FormatInt(int64(f), 10))
	}
	return UserID(strconv.FormatFloat(f, 'f', -1, 64))
}
