package translator

import "strings"

// NewlineToken stands in for a line break inside one numbered item.
//
// Text that already contains "<NL" followed by zero or more '!' and '>'
// gets one more '!' on encode, so "<NL>" travels as "<NL!>" and "<NL!>"
// as "<NL!!>". Decoding strips one '!' again. A model that rewrites
// "<NL!>" to "<NL>" turns the literal into a line break.
const NewlineToken = "<NL>"

const tokenMark = '!'

// EncodeNewlines normalizes line endings, escapes literal newline tokens
// and replaces real line breaks with NewlineToken.
func EncodeNewlines(text string) string {
	text = normalizeLineEndings(text)
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		if text[i] == '\n' {
			sb.WriteString(NewlineToken)
			i++
			continue
		}
		if n, marks := matchToken(text[i:]); n > 0 {
			writeToken(&sb, marks+1)
			i += n
			continue
		}
		sb.WriteByte(text[i])
		i++
	}
	return sb.String()
}

// DecodeNewlines reverses EncodeNewlines.
func DecodeNewlines(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); {
		if n, marks := matchToken(text[i:]); n > 0 {
			if marks == 0 {
				sb.WriteByte('\n')
			} else {
				writeToken(&sb, marks-1)
			}
			i += n
			continue
		}
		sb.WriteByte(text[i])
		i++
	}
	return sb.String()
}

// matchToken reports the byte length and mark count of a "<NL!...>" token
// at the start of s, or zero when s does not start with one.
func matchToken(s string) (n, marks int) {
	if !strings.HasPrefix(s, "<NL") {
		return 0, 0
	}
	n = len("<NL")
	for n < len(s) && s[n] == tokenMark {
		n++
	}
	if n < len(s) && s[n] == '>' {
		return n + 1, n - len("<NL")
	}
	return 0, 0
}

func writeToken(sb *strings.Builder, marks int) {
	sb.WriteString("<NL")
	for m := 0; m < marks; m++ {
		sb.WriteByte(tokenMark)
	}
	sb.WriteByte('>')
}

func normalizeLineEndings(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
