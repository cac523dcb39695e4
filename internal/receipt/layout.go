package receipt

import "strings"

// MeasureFunc returns the rendered width of text at the given font size
type MeasureFunc func(text string, size float64) float64

// ShrinkToFit returns the largest integer step size, starting at base, at which the widest
// single word of text fits maxWidth. It never goes below floor.
func ShrinkToFit(text string, base, floor, maxWidth float64, measure MeasureFunc) float64 {
	word := widestWord(text, base, measure)
	size := base
	for size > floor && measure(word, size) > maxWidth {
		size--
	}
	if size < floor {
		size = floor
	}
	return size
}

// WrapText greedily packs words into lines no wider than maxWidth.
// A single word wider than maxWidth gets a line of its own.
func WrapText(text string, size, maxWidth float64, measure MeasureFunc) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	current := words[0]
	for _, w := range words[1:] {
		candidate := current + " " + w
		if measure(candidate, size) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = w
	}
	return append(lines, current)
}

func widestWord(text string, size float64, measure MeasureFunc) string {
	var widest string
	var max float64
	for _, w := range strings.Fields(text) {
		if width := measure(w, size); width > max {
			widest, max = w, width
		}
	}
	return widest
}

// fitRect scales an image of w x h into a box, keeping the aspect ratio
func fitRect(w, h, boxW, boxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return boxW, boxH
	}
	scale := boxW / w
	if s := boxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}
