// Package color picks and shades the hex colour tokens attached to categories.
package color

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
)

// Palette holds the light flat shades new categories are painted with.
var Palette = []string{
	"#F1A9A0", // pink
	"#F5D76E", // yellow
	"#A2DED0", // mint
	"#89C4F4", // sky
	"#C5A3D9", // lavender
	"#FAC08F", // peach
	"#B8E994", // lime
	"#E4F1FE", // ice
	"#F7CAC9", // rose
	"#D2B48C", // sand
}

// RandomLight returns a palette entry chosen with r.
func RandomLight(r *rand.Rand) string {
	return Palette[r.Intn(len(Palette))]
}

// Parse splits a #RRGGBB token into its channels.
func Parse(hex string) (r, g, b uint8, err error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(raw) != 6 {
		return 0, 0, 0, fmt.Errorf("color %q: expected #RRGGBB", hex)
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("color %q: %w", hex, err)
	}
	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// Darken scales every channel towards black by fraction (0 keeps the colour,
// 1 yields black). Invalid input is returned unchanged.
func Darken(hex string, fraction float64) string {
	r, g, b, err := Parse(hex)
	if err != nil {
		return hex
	}
	fraction = math.Max(0, math.Min(1, fraction))
	scale := func(c uint8) uint8 {
		return uint8(math.Round(float64(c) * (1 - fraction)))
	}
	return fmt.Sprintf("#%02X%02X%02X", scale(r), scale(g), scale(b))
}

// RowShade is the tint for row index of count rows under a base colour.
func RowShade(base string, index, count int) string {
	if count <= 0 {
		return base
	}
	return Darken(base, float64(index)/float64(count))
}

type swatch struct {
	emoji   string
	r, g, b float64
}

var swatches = []swatch{
	{"🟥", 221, 46, 68},
	{"🟧", 244, 144, 12},
	{"🟨", 253, 203, 88},
	{"🟩", 120, 177, 89},
	{"🟦", 85, 172, 238},
	{"🟪", 170, 142, 214},
	{"🟫", 193, 105, 79},
	{"⬛", 49, 55, 61},
	{"⬜", 230, 231, 232},
}

// Swatch returns the coloured square emoji closest to hex. Invalid input maps
// to the white square.
func Swatch(hex string) string {
	r, g, b, err := Parse(hex)
	if err != nil {
		return "⬜"
	}
	best, bestDist := swatches[len(swatches)-1].emoji, math.MaxFloat64
	for _, s := range swatches {
		dr, dg, db := float64(r)-s.r, float64(g)-s.g, float64(b)-s.b
		if d := dr*dr + dg*dg + db*db; d < bestDist {
			best, bestDist = s.emoji, d
		}
	}
	return best
}
