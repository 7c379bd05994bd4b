package ui

import (
	"strconv"
	"strings"

	"github.com/gdamore/tcell/v2"
)

// Theme colors for the viewer.
var (
	ColorBackground = tcell.NewHexColor(0x0a0f0a)
	ColorText       = tcell.NewHexColor(0x00ff66)
	ColorTextMuted  = tcell.NewHexColor(0x336644)
	ColorBorder     = tcell.NewHexColor(0x224433)
	ColorWarning    = tcell.NewHexColor(0xf9e2af)
	ColorError      = tcell.NewHexColor(0xf38ba8)
)

// HexColor converts an "#rrggbb" agent color to a tcell color, falling
// back to the default text color for anything unparseable.
func HexColor(s string) tcell.Color {
	s = strings.TrimPrefix(s, "#")
	v, err := strconv.ParseInt(s, 16, 32)
	if err != nil {
		return ColorText
	}
	return tcell.NewHexColor(int32(v))
}
