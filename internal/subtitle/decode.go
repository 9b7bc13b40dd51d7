package subtitle

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

var (
	utf8BOM    = []byte{0xEF, 0xBB, 0xBF}
	utf16LEBOM = []byte{0xFF, 0xFE}
	utf16BEBOM = []byte{0xFE, 0xFF}
)

// chardet names that htmlindex spells differently
var charsetAliases = map[string]string{
	"GB-18030": "gb18030",
}

// Decode decodes raw subtitle bytes and parses them into a Document.
func Decode(data []byte) (*Document, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}
	text = strings.TrimLeft(text, "\ufeff")
	return DecodeText(text, detectNewline(text))
}

// decodeText tries, in order: UTF-8 BOM, UTF-16 BOM, strict UTF-8 and
// statistical detection.
func decodeText(data []byte) (string, error) {
	switch {
	case bytes.HasPrefix(data, utf8BOM):
		rest := data[len(utf8BOM):]
		if !utf8.Valid(rest) {
			return "", &EncodingError{
				Hint: "The file looks like UTF-8 with BOM, but it contains invalid UTF-8 bytes. Try re-saving as UTF-8.",
			}
		}
		return string(rest), nil
	case bytes.HasPrefix(data, utf16LEBOM):
		return decodeUTF16(data[len(utf16LEBOM):], unicode.LittleEndian, "LE")
	case bytes.HasPrefix(data, utf16BEBOM):
		return decodeUTF16(data[len(utf16BEBOM):], unicode.BigEndian, "BE")
	}

	if utf8.Valid(data) {
		return string(data), nil
	}
	return decodeDetected(data)
}

func decodeUTF16(data []byte, order unicode.Endianness, name string) (string, error) {
	dec := unicode.UTF16(order, unicode.IgnoreBOM).NewDecoder()
	out, err := decodeStrict(dec, data)
	if err != nil {
		return "", &EncodingError{
			Hint: fmt.Sprintf("The file looks like UTF-16 (%s) but contains invalid sequences. Try exporting subtitles again as UTF-8.", name),
		}
	}
	return out, nil
}

func decodeDetected(data []byte) (string, error) {
	result, err := chardet.NewTextDetector().DetectBest(data)
	if err != nil || result == nil {
		return "", &EncodingError{
			Hint: "We could not detect the text encoding of this file. Try re-saving the .srt file as UTF-8.",
		}
	}

	name := result.Charset
	if alias, ok := charsetAliases[name]; ok {
		name = alias
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", &EncodingError{
			Hint: fmt.Sprintf("The file looks like %s, which is not supported. Try re-saving the .srt file as UTF-8.", result.Charset),
		}
	}

	out, err := decodeStrict(enc.NewDecoder(), data)
	if err != nil {
		return "", &EncodingError{
			Hint: fmt.Sprintf("We tried decoding this file as %s, but it still contained invalid characters. Try re-saving the .srt file as UTF-8.", result.Charset),
		}
	}
	return out, nil
}

// decodeStrict fails when the decoder errors or substitutes U+FFFD for
// invalid input.
func decodeStrict(dec *encoding.Decoder, data []byte) (string, error) {
	out, err := dec.Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", fmt.Errorf("invalid byte sequence")
	}
	return string(out), nil
}

func detectNewline(text string) NewlineStyle {
	if strings.Contains(text, "\r\n") {
		return CRLF
	}
	return LF
}
