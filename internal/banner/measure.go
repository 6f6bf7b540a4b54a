package banner

import "unicode/utf8"

// avgGlyphWidthFactor approximates the average advance width of a
// proportional glyph as a fraction of the point size. Good enough for
// scroll timing; surfaces that can measure precisely may override the
// estimate.
const avgGlyphWidthFactor = 0.6

// EstimateTextWidth approximates the rendered pixel width of s at the
// given point size.
func EstimateTextWidth(s string, fontPt float64) int {
	if fontPt <= 0 {
		fontPt = 12
	}
	n := utf8.RuneCountInString(s)
	return int(float64(n) * fontPt * avgGlyphWidthFactor)
}
