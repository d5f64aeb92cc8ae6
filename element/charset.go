package element

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// charsetEncodings maps a DICOM Specific Character Set (0008,0005)
// defined term to the encoding.Encoding that decodes it into UTF-8.
// "ISO_IR 6" and "ISO 2022 IR 6" (the default repertoire) are absent by
// design: they are already ASCII, a UTF-8 subset.
var charsetEncodings = map[string]encoding.Encoding{
	"ISO_IR 100": charmap.ISO8859_1,
	"ISO_IR 101": charmap.ISO8859_2,
	"ISO_IR 109": charmap.ISO8859_3,
	"ISO_IR 110": charmap.ISO8859_4,
	"ISO_IR 144": charmap.ISO8859_5,
	"ISO_IR 127": charmap.ISO8859_6,
	"ISO_IR 126": charmap.ISO8859_7,
	"ISO_IR 138": charmap.ISO8859_8,
	"ISO_IR 148": charmap.ISO8859_9,
	"ISO_IR 13":  japanese.ShiftJIS,
	"ISO_IR 149": korean.EUCKR,
	"GBK":        simplifiedchinese.GBK,
	"GB18030":    simplifiedchinese.GB18030,
}

// decodeCharset transcodes each of parts from specificCharacterSet's
// defined term into UTF-8, leaving parts untouched for an empty or
// unrecognized term. A component that fails to transcode (malformed
// input for the declared charset) is kept verbatim rather than dropped.
func decodeCharset(parts []string, specificCharacterSet string) []string {
	enc, ok := charsetEncodings[strings.TrimSpace(specificCharacterSet)]
	if !ok {
		return parts
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		decoded, err := enc.NewDecoder().String(p)
		if err != nil {
			out[i] = p
			continue
		}
		out[i] = decoded
	}
	return out
}
