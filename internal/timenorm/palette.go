package timenorm

// ColorPalette returns the fixed ten-color palette the dashboard uses for
// consistent chart coloring. Deterministic and stateless.
func ColorPalette() []string {
	return []string{
		"#BB86FC", // purple
		"#03DAC6", // teal
		"#CF6679", // pink
		"#4a86e8", // blue
		"#ff9e0b", // orange
		"#00B8D9", // cyan
		"#36B37E", // green
		"#FF5630", // red
		"#8777D9", // lavender
		"#6554C0", // indigo
	}
}
