package gamedata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// ParseHexColor converts a hex color string (e.g., "#FF0000" or "FF0000") to a tcell.Color.
func ParseHexColor(hex string) (tcell.Color, error) {
	hex = strings.TrimPrefix(hex, "#")

	if len(hex) != 6 {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color length: %s", hex)
	}

	rgb, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return tcell.ColorDefault, fmt.Errorf("invalid hex color %s: %w", hex, err)
	}

	return tcell.NewRGBColor(int32(rgb>>16&0xFF), int32(rgb>>8&0xFF), int32(rgb&0xFF)), nil
}

// Palette maps subjects to their backdrop colours.
type Palette map[Subject]tcell.Color

// LoadPalette builds a Palette from the embedded subjects.json.
// Subjects with an unparsable colour fall back to dark gray.
func LoadPalette() (Palette, error) {
	defs, err := LoadSubjects()
	if err != nil {
		return nil, err
	}
	p := make(Palette, len(defs))
	for _, def := range defs {
		color, err := ParseHexColor(def.Color)
		if err != nil {
			color = tcell.ColorDarkGray
		}
		p[def.ID] = color
	}
	return p, nil
}

// Color returns the colour for s, or dark gray when unknown.
func (p Palette) Color(s Subject) tcell.Color {
	if c, ok := p[s]; ok {
		return c
	}
	return tcell.ColorDarkGray
}
