package zipstream

import (
	"archive/zip"
)

// headerKind distinguishes what readFixedHeader found at the current
// stream position.
type headerKind int

const (
	headerLocalFile headerKind = iota
	headerCentralFile
	headerArchiveExtra
	headerOther // neither LFH, CFH, nor AED: end of archive
)

// readFixedHeader reads the 4-byte signature and, if it is a local file
// header, the remaining 26 fixed bytes. Two prefix cases only apply to the
// first entry:
//
//   - a bare data-descriptor signature as the very first bytes means a
//     split archive segment marker was expected but a continuation marker
//     was found instead, unsupported (FeatureSplitting).
//   - the single-segment split marker is consumed and discarded, and the
//     real header is read fresh immediately after it.
func (z *Reader) readFixedHeader(firstEntry bool) (headerKind, [26]byte, error) {
	var sigBuf [4]byte
	if _, err := z.src.readFull(sigBuf[:]); err != nil {
		return headerOther, [26]byte{}, errUnexpectedEOF(err)
	}
	sig := le32(sigBuf[:])

	if firstEntry {
		switch sig {
		case sigDataDescriptor:
			return headerOther, [26]byte{}, errUnsupported(FeatureSplitting)
		case sigSplitMarker:
			if _, err := z.src.readFull(sigBuf[:]); err != nil {
				return headerOther, [26]byte{}, errUnexpectedEOF(err)
			}
			sig = le32(sigBuf[:])
		}
	}

	switch sig {
	case sigLocalFile:
		var rest [26]byte
		if _, err := z.src.readFull(rest[:]); err != nil {
			return headerOther, rest, errUnexpectedEOF(err)
		}
		return headerLocalFile, rest, nil
	case sigCentralFile, sigArchiveExtra:
		// Unlike the LFH case, these 26 bytes are never interpreted. They
		// still have to be consumed: skipTrailer's CFH skip arithmetic
		// counts on having over-read exactly 30 bytes into what turned out
		// to be the first central file header.
		var rest [26]byte
		if _, err := z.src.readFull(rest[:]); err != nil {
			return headerOther, rest, errUnexpectedEOF(err)
		}
		if sig == sigCentralFile {
			return headerCentralFile, rest, nil
		}
		return headerArchiveExtra, rest, nil
	default:
		// Signature matches none of LFH/CFH/AED, including a bare EOCD in
		// an archive with no entries. No more bytes are read: the archive
		// is over either way, and for the empty-archive case there may be
		// fewer than 26 more bytes available at all.
		return headerOther, [26]byte{}, nil
	}
}

// parseLocalHeader reads the variable name and extra field following the
// 26 fixed bytes already read by readFixedHeader, and produces entry
// metadata. The fixed fields are decoded in header order, starting at the
// version-needed field that follows the signature.
func (z *Reader) parseLocalHeader(fixed [26]byte) (*Entry, error) {
	b := readBuf(fixed[:])
	_ = b.uint16() // version-needed, ignored
	flags := b.uint16()
	method := b.uint16()
	modTime := b.uint16()
	modDate := b.uint16()
	crc := b.uint32()
	compressedSize := b.uint32()
	uncompressedSize := b.uint32()
	nameLen := int(b.uint16())
	extraLen := int(b.uint16())

	if flags&0x1 != 0 {
		return nil, errUnsupported(FeatureEncryptedContent)
	}

	entry := &Entry{
		FileHeader: zip.FileHeader{
			Flags:        flags,
			Method:       method,
			ModifiedTime: modTime,
			ModifiedDate: modDate,
		},
		UsesDataDescriptor: flags&0x8 != 0,
	}

	nameAndExtra := make([]byte, nameLen+extraLen)
	if _, err := z.src.readFull(nameAndExtra); err != nil {
		return nil, errUnexpectedEOF(err)
	}
	entry.NameBytes = nameAndExtra[:nameLen]
	entry.Extra = nameAndExtra[nameLen:]
	entry.NonUTF8 = !entry.utf8Names()

	name, err := decodeName(entry.NameBytes, entry.utf8Names(), z.encoding, entry.Extra, z.useUnicodeExtra)
	if err != nil {
		return nil, err
	}
	entry.Name = name
	entry.Modified = msDosTimeToTime(modDate, modTime)

	if !entry.UsesDataDescriptor {
		entry.CRC32 = crc
		entry.CompressedSize = compressedSize
		entry.UncompressedSize = uncompressedSize
		entry.CompressedSize64 = uint64(compressedSize)
		entry.UncompressedSize64 = uint64(uncompressedSize)

		needCSize := compressedSize == zip64SentinelU32
		needUSize := uncompressedSize == zip64SentinelU32
		if err := scanZip64Extra(entry, needUSize, needCSize); err != nil {
			return nil, err
		}
		if needCSize && entry.CompressedSize64 == zip64SentinelU32 {
			return nil, ErrFormat
		}
	} else {
		// Sizes/CRC are placeholders; still record whether a ZIP64 extra
		// is present so the data-descriptor length (12 vs 20 bytes) can
		// be chosen correctly.
		if err := scanZip64Extra(entry, false, false); err != nil {
			return nil, err
		}
	}

	// Methods other than STORED/DEFLATED are still enumerable: the header
	// parses fine, the payload is just drained rather than decompressed.
	return entry, nil
}
