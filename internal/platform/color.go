// internal/platform/color.go
package platform

import (
	"fmt"
	"strconv"
	"strings"
)

var namedColors = map[string]string{
	"black":     "#FF000000",
	"darkgray":  "#FF444444",
	"darkgrey":  "#FF444444",
	"gray":      "#FF888888",
	"grey":      "#FF888888",
	"lightgray": "#FFCCCCCC",
	"lightgrey": "#FFCCCCCC",
	"white":     "#FFFFFFFF",
	"red":       "#FFFF0000",
	"green":     "#FF00FF00",
	"blue":      "#FF0000FF",
	"yellow":    "#FFFFFF00",
	"cyan":      "#FF00FFFF",
	"magenta":   "#FFFF00FF",
	"aqua":      "#FF00FFFF",
	"fuchsia":   "#FFFF00FF",
	"lime":      "#FF00FF00",
	"maroon":    "#FF800000",
	"navy":      "#FF000080",
	"olive":     "#FF808000",
	"purple":    "#FF800080",
	"silver":    "#FFC0C0C0",
	"teal":      "#FF008080",
}

// ParseColor accepts #RRGGBB, #AARRGGBB or a color name and returns the
// color as upper case #AARRGGBB.
func ParseColor(color string) (string, error) {
	if strings.HasPrefix(color, "#") {
		hex := color[1:]
		if len(hex) != 6 && len(hex) != 8 {
			return "", fmt.Errorf("unknown color %q", color)
		}
		if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
			return "", fmt.Errorf("unknown color %q: %w", color, err)
		}
		if len(hex) == 6 {
			hex = "FF" + hex
		}
		return "#" + strings.ToUpper(hex), nil
	}
	if c, ok := namedColors[strings.ToLower(color)]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown color %q", color)
}
