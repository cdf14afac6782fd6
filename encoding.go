package zipstream

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Extra field header ids this reader recognizes beyond the ZIP64 block.
// Only the Unicode Path field is read, because decoding the name correctly
// depends on it; the Unicode Comment id is declared but not consulted.
const (
	infoZipUnicodePathID    = 0x7075
	infoZipUnicodeCommentID = 0x6375
)

// decodeName renders the raw name bytes from a local file header into text.
// When the UTF-8 flag (general-purpose bit 11) is set the bytes are already
// UTF-8. Otherwise the configured encoding is used, and, if the caller
// opted in, an InfoZIP Unicode Path extra field overrides the result
// entirely.
func decodeName(raw []byte, utf8Flag bool, enc encoding.Encoding, extra []byte, useUnicodeExtra bool) (string, error) {
	if utf8Flag {
		return string(raw), nil
	}

	name := raw
	decoded, err := decodeBytes(name, enc)
	if err != nil {
		return "", err
	}

	if useUnicodeExtra {
		if up, ok := findInfoZipUnicodePath(extra, raw); ok {
			return up, nil
		}
	}
	return decoded, nil
}

func decodeBytes(raw []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		enc = charmap.CodePage437
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// findInfoZipUnicodePath scans the raw extra-field bytes for an InfoZIP
// Unicode Path extra (id 0x7075: version byte, CRC32 of the original name,
// then UTF-8 name bytes) and returns its name if the CRC matches the
// original (non-UTF-8) name bytes, guarding against a stale extra field
// left over from a rename.
func findInfoZipUnicodePath(extra, originalName []byte) (string, bool) {
	buf := readBuf(extra)
	for len(buf) >= 4 {
		id := buf.uint16()
		size := int(buf.uint16())
		if len(buf) < size {
			return "", false
		}
		field := buf.sub(size)
		if id != infoZipUnicodePathID || len(field) < 5 {
			continue
		}
		version := field.uint8()
		if version != 1 {
			continue
		}
		crc := field.uint32()
		if crc != crc32IEEE(originalName) {
			continue
		}
		return string(field), true
	}
	return "", false
}
