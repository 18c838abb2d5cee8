package display

import "strings"

// WrapToPixels splits text into lines no wider than maxWidth pixels.
// Each "\n" starts a new line; words are packed greedily and a word wider than
// the line is broken with a trailing hyphen. The result always has at least
// one element, so wrapping "" yields a single empty line.
func WrapToPixels(text string, maxWidth int, font Font) []string {
	space := font.Advance(' ')
	hyphen := font.Advance('-')

	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		var cur strings.Builder
		curWidth := 0
		empty := true

		flush := func() {
			lines = append(lines, cur.String())
			cur.Reset()
			curWidth = 0
			empty = true
		}

		for _, word := range strings.Split(paragraph, " ") {
			wordWidth := Measure(font, word)
			lead := 0
			if !empty {
				lead = space
			}
			if curWidth+lead+wordWidth <= maxWidth {
				if !empty {
					cur.WriteByte(' ')
				}
				cur.WriteString(word)
				curWidth += lead + wordWidth
				empty = false
				continue
			}
			if wordWidth <= maxWidth {
				flush()
				cur.WriteString(word)
				curWidth = wordWidth
				empty = false
				continue
			}

			// Word wider than a whole line: fill the current line, then break
			// across as many lines as needed.
			if !empty {
				if curWidth+space+font.Advance(firstRune(word))+hyphen > maxWidth {
					flush()
				} else {
					cur.WriteByte(' ')
					curWidth += space
				}
			}
			runes := []rune(word)
			for i, r := range runes {
				if rest := Measure(font, string(runes[i:])); curWidth+rest <= maxWidth {
					cur.WriteString(string(runes[i:]))
					curWidth += rest
					empty = false
					break
				}
				adv := font.Advance(r)
				if curWidth+adv+hyphen > maxWidth && curWidth > 0 {
					cur.WriteByte('-')
					flush()
				}
				cur.WriteRune(r)
				curWidth += adv
				empty = false
			}
		}
		flush()
	}
	return lines
}

// MinWidth returns the narrowest viewport the wrapper can fill: one glyph of
// the widest common cell plus a hyphen.
func MinWidth(font Font) int {
	return font.Advance('W') + font.Advance('-')
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
