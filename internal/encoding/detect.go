// Package encoding turns uploaded spreadsheet exports into UTF-8.
package encoding

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Charset labels reported by Detect.
const (
	UTF8        = "UTF-8"
	UTF16LE     = "UTF-16LE"
	UTF16BE     = "UTF-16BE"
	Windows1252 = "windows-1252"
	ISO8859_9   = "ISO-8859-9"
)

// sampleSize bounds how much input chardet inspects.
const sampleSize = 4096

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Detect guesses the charset of b. A byte order mark wins, then strict UTF-8
// validation, then chardet. Anything chardet cannot place is treated as
// Windows-1252, which is what spreadsheet tools on Windows emit by default.
func Detect(b []byte) string {
	switch {
	case bytes.HasPrefix(b, bomUTF8):
		return UTF8
	case bytes.HasPrefix(b, bomUTF16LE):
		return UTF16LE
	case bytes.HasPrefix(b, bomUTF16BE):
		return UTF16BE
	case utf8.Valid(b):
		return UTF8
	}

	sample := b
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}

	result, err := chardet.NewTextDetector().DetectBest(sample)
	if err != nil {
		return Windows1252
	}

	switch result.Charset {
	case "UTF-8":
		return UTF8
	case "ISO-8859-9":
		return ISO8859_9
	default:
		return Windows1252
	}
}

// Decode converts b to UTF-8 and reports the charset it was read as.
// A UTF-8 byte order mark is dropped.
func Decode(b []byte) ([]byte, string, error) {
	charset := Detect(b)

	var enc encoding.Encoding

	switch charset {
	case UTF8:
		return bytes.TrimPrefix(b, bomUTF8), charset, nil
	case UTF16LE:
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case UTF16BE:
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case ISO8859_9:
		enc = charmap.ISO8859_9
	default:
		enc = charmap.Windows1252
	}

	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return nil, charset, fmt.Errorf("decoding %s: %w", charset, err)
	}

	return out, charset, nil
}
