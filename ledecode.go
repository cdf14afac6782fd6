package zipstream

import "encoding/binary"

// Fixed 4-byte little-endian record signatures.
const (
	sigLocalFile      uint32 = 0x04034b50 // LFH: 50 4B 03 04
	sigCentralFile    uint32 = 0x02014b50 // CFH: 50 4B 01 02
	sigEndOfCentral   uint32 = 0x06054b50 // EOCD: 50 4B 05 06
	sigDataDescriptor uint32 = 0x08074b50 // DD: 50 4B 07 08 (optional)
	sigArchiveExtra   uint32 = 0x08064b50 // AED: 50 4B 06 08
	sigSplitMarker    uint32 = 0x30304b50 // single-segment split marker: 50 4B 30 30
)

// zip64SentinelU32 marks that the real 4-byte size field overflowed and the
// true value lives in the ZIP64 extra field.
const zip64SentinelU32 = 0xFFFFFFFF

// Fixed record lengths.
const (
	localFileHeaderLen   = 30 // signature through extra-field-length, fixed part
	centralFileHeaderLen = 46
	minEOCDLen           = 22
	dataDescriptorLen    = 12 // crc32 + 2x uint32 sizes, signature excluded
	zip64DataDescLen     = 20 // crc32 + 2x uint64 sizes, signature excluded
)

func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }
func le64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }

// classifySignature reports which of LFH, CFH, or DD matches the head of b,
// if any. Always compares the full 4 bytes against each candidate.
func classifySignature(b []byte) (sig uint32, ok bool) {
	if len(b) < 4 {
		return 0, false
	}
	switch v := le32(b); v {
	case sigLocalFile, sigCentralFile, sigDataDescriptor:
		return v, true
	default:
		return 0, false
	}
}
