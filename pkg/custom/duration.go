package custom

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned when a duration cannot be parsed.
var ErrInvalidDuration = errors.New("invalid duration")

const (
	day  = 24 * time.Hour
	week = 7 * day
)

// Duration is a time.Duration that administrators write in a human form such as "90m", "2d" or
// "1w2d6h". It is stored as nanoseconds in BSON and as the human form in JSON and YAML.
type Duration time.Duration

// ParseDuration parses a human duration. Supported units are s, m, h, d and w. A bare number is
// read as minutes. Zero is allowed, negative values are not.
func ParseDuration(s string) (Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidDuration)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("%w: %q is negative", ErrInvalidDuration, s)
		}
		v, ok := scale(n, time.Minute)
		if !ok {
			return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, s)
		}
		return Duration(v), nil
	}

	var total time.Duration
	num := ""
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == ' ':
			continue
		default:
			if num == "" {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			n, err := strconv.ParseInt(num, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			unit, ok := unitOf(r)
			if !ok {
				return 0, fmt.Errorf("%w: unknown unit %q", ErrInvalidDuration, string(r))
			}
			v, ok := scale(n, unit)
			if !ok || total > math.MaxInt64-v {
				return 0, fmt.Errorf("%w: %q is too long", ErrInvalidDuration, s)
			}
			total += v
			num = ""
		}
	}
	if num != "" {
		return 0, fmt.Errorf("%w: %q is missing a unit", ErrInvalidDuration, s)
	}
	return Duration(total), nil
}

// scale multiplies n by unit, reporting false when the result does not fit in a time.Duration.
func scale(n int64, unit time.Duration) (time.Duration, bool) {
	if n > math.MaxInt64/int64(unit) {
		return 0, false
	}
	return time.Duration(n) * unit, true
}

func unitOf(r rune) (time.Duration, bool) {
	switch r {
	case 's':
		return time.Second, true
	case 'm':
		return time.Minute, true
	case 'h':
		return time.Hour, true
	case 'd':
		return day, true
	case 'w':
		return week, true
	}
	return 0, false
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String renders the duration in the same form ParseDuration accepts.
func (d Duration) String() string {
	v := time.Duration(d)
	if v <= 0 {
		return "0m"
	}

	var b strings.Builder
	for _, u := range []struct {
		unit time.Duration
		name string
	}{{week, "w"}, {day, "d"}, {time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"}} {
		if n := v / u.unit; n > 0 {
			b.WriteString(strconv.FormatInt(int64(n), 10))
			b.WriteString(u.name)
			v -= n * u.unit
		}
	}
	if b.Len() == 0 {
		return "0m"
	}
	return b.String()
}

// MarshalText implements the encoding.TextMarshaler interface.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
