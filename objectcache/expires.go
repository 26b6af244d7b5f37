package objectcache

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ExpiresCondition is the condition that overrides the default TTL, in seconds.
const ExpiresCondition = "expires"

// ParseExpires converts an expires condition value to a duration. Integer
// kinds, whole floats, json.Number and decimal strings are accepted. Only
// positive values are valid; anything else reports false.
func ParseExpires(v any) (time.Duration, bool) {
	var secs int64
	switch n := v.(type) {
	case int:
		secs = int64(n)
	case int8:
		secs = int64(n)
	case int16:
		secs = int64(n)
	case int32:
		secs = int64(n)
	case int64:
		secs = n
	case uint:
		secs = clampUint(uint64(n))
	case uint8:
		secs = int64(n)
	case uint16:
		secs = int64(n)
	case uint32:
		secs = int64(n)
	case uint64:
		secs = clampUint(n)
	case float32:
		return fromFloat(float64(n))
	case float64:
		return fromFloat(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			secs = i
			break
		}
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, false
		}
		secs = i
	default:
		return 0, false
	}
	return fromSeconds(secs)
}

const maxSeconds = math.MaxInt64 / int64(time.Second)

func fromSeconds(secs int64) (time.Duration, bool) {
	if secs <= 0 {
		return 0, false
	}
	if secs > maxSeconds {
		secs = maxSeconds
	}
	return time.Duration(secs) * time.Second, true
}

func fromFloat(f float64) (time.Duration, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f <= 0 {
		return 0, false
	}
	if f > float64(maxSeconds) {
		return fromSeconds(maxSeconds)
	}
	return fromSeconds(int64(f))
}

func clampUint(n uint64) int64 {
	if n > uint64(maxSeconds) {
		return maxSeconds
	}
	return int64(n)
}
