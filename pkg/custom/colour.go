package custom

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidColour is returned when a colour cannot be parsed.
var ErrInvalidColour = errors.New("invalid colour")

// Colour is an RGB colour used for embeds.
type Colour int

var namedColours = map[string]Colour{
	"blurple": 0x5865F2,
	"green":   0x57F287,
	"yellow":  0xFEE75C,
	"red":     0xED4245,
	"fuchsia": 0xEB459E,
	"white":   0xFFFFFF,
	"black":   0x000000,
	"grey":    0x95A5A6,
	"gray":    0x95A5A6,
}

// ParseColour parses "#RRGGBB", "0xRRGGBB", "RRGGBB" or a named colour.
func ParseColour(s string) (Colour, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if c, ok := namedColours[s]; ok {
		return c, nil
	}

	hex := strings.TrimPrefix(strings.TrimPrefix(s, "#"), "0x")
	if len(hex) != 6 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColour, s)
	}
	v, err := strconv.ParseInt(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidColour, s)
	}
	return Colour(v), nil
}

// String renders the colour as #RRGGBB.
func (c Colour) String() string {
	return fmt.Sprintf("#%06X", int(c))
}

// MarshalText implements the encoding.TextMarshaler interface.
func (c Colour) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (c *Colour) UnmarshalText(text []byte) error {
	v, err := ParseColour(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
