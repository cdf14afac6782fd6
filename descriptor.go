package zipstream

// scratchSize is the size of the scratch/look-ahead buffers the reader
// allocates per call, the same order of magnitude as a typical ZIP output
// buffer.
const scratchSize = 512

// scanForSignature checks every 4-byte window in buf for an exact match
// against LFH, CFH, or DD.
func scanForSignature(buf []byte) (idx int, sig uint32, found bool) {
	for i := 0; i+4 <= len(buf); i++ {
		if s, ok := classifySignature(buf[i : i+4]); ok {
			return i, s, true
		}
	}
	return 0, 0, false
}

// locateDataDescriptor is invoked for an entry whose size was not declared
// in its local file header (general-purpose bit 3): STORED bytes carry no
// self-terminating structure the way a DEFLATE stream does, so the only way
// to find where the entry's content ends is to scan forward for the next
// record. ddLen is 12 or 20 depending on whether the entry's extra field
// already indicated ZIP64.
func (z *Reader) locateDataDescriptor(entry *Entry, ddLen int) ([]byte, error) {
	var acc []byte
	buf := make([]byte, scratchSize)
	off := 0
	for {
		n, rerr := z.src.read(buf[off:])
		lastRead := off + n

		if idx, kind, found := scanForSignature(buf[:lastRead]); found {
			acc = append(acc, buf[:idx]...)
			if kind == sigDataDescriptor {
				// The descriptor carries its own signature; push back
				// everything from it onward and let parseDataDescriptor
				// read it off the stream like any other signed descriptor.
				z.src.unread(append([]byte(nil), buf[idx:lastRead]...))
				crc, csize, usize, zip64, err := z.parseDataDescriptor()
				if err != nil {
					return nil, err
				}
				applyDataDescriptor(entry, crc, csize, usize, zip64)
				return acc, nil
			}

			// LFH or CFH matched: the ddLen bytes immediately preceding it
			// are an unsigned data descriptor, already sitting in buf.
			// Anything after that belongs to the next record and is
			// pushed back for the next local-header read.
			if idx < ddLen {
				return nil, errTruncated(ErrFormat)
			}
			ddStart := idx - ddLen
			ddBytes := buf[ddStart:idx]
			crc, csize, usize := parseFixedDataDescriptor(ddBytes, ddLen == zip64DataDescLen)
			applyDataDescriptor(entry, crc, csize, usize, ddLen == zip64DataDescLen)
			acc = acc[:len(acc)-ddLen] // the ddLen bytes just appended were the descriptor, not content
			z.src.unread(append([]byte(nil), buf[idx:lastRead]...))
			return acc, nil
		}

		// No signature in this window: retain the worst case (a full data
		// descriptor plus up to 3 bytes of a signature split across
		// reads) and flush everything before it to the accumulator.
		keep := ddLen + 3
		if lastRead > keep {
			acc = append(acc, buf[:lastRead-keep]...)
			copy(buf, buf[lastRead-keep:lastRead])
			off = keep
		} else {
			off = lastRead
		}
		if rerr != nil {
			return nil, errTruncated(rerr)
		}
	}
}

// parseDataDescriptor reads a data descriptor directly off the stream. Used
// when DEFLATE's own end-of-stream signaled the boundary, and when
// locateDataDescriptor found the descriptor's own signature. The optional
// leading signature and the 4-vs-8-byte size-field width are both detected
// by look-ahead: some writers emit 8-byte sizes with no ZIP64 extra field
// at all.
func (z *Reader) parseDataDescriptor() (crc uint32, csize, usize uint64, zip64 bool, err error) {
	var first [4]byte
	if _, e := z.src.readFull(first[:]); e != nil {
		return 0, 0, 0, false, errUnexpectedEOF(e)
	}
	if le32(first[:]) == sigDataDescriptor {
		var crcBuf [4]byte
		if _, e := z.src.readFull(crcBuf[:]); e != nil {
			return 0, 0, 0, false, errUnexpectedEOF(e)
		}
		crc = le32(crcBuf[:])
	} else {
		crc = le32(first[:])
	}

	var rest [16]byte
	if _, e := z.src.readFull(rest[:]); e != nil {
		return 0, 0, 0, false, errUnexpectedEOF(e)
	}
	if v := le32(rest[8:12]); v == sigLocalFile || v == sigCentralFile {
		csize = uint64(le32(rest[0:4]))
		usize = uint64(le32(rest[4:8]))
		z.src.unread(append([]byte(nil), rest[8:16]...))
		zip64 = false
	} else {
		csize = le64(rest[0:8])
		usize = le64(rest[8:16])
		zip64 = true
	}
	return crc, csize, usize, zip64, nil
}

// parseFixedDataDescriptor decodes a data descriptor's fields from an
// already-buffered, signature-less byte slice of exactly 12 or 20 bytes:
// the shape locateDataDescriptor hands off when it located the boundary by
// finding the next record's signature rather than the descriptor's own.
func parseFixedDataDescriptor(b []byte, zip64 bool) (crc uint32, csize, usize uint64) {
	buf := readBuf(b)
	crc = buf.uint32()
	if zip64 {
		csize = buf.uint64()
		usize = buf.uint64()
	} else {
		csize = uint64(buf.uint32())
		usize = uint64(buf.uint32())
	}
	return crc, csize, usize
}

func applyDataDescriptor(entry *Entry, crc uint32, csize, usize uint64, zip64 bool) {
	entry.CRC32 = crc
	entry.CompressedSize64 = csize
	entry.UncompressedSize64 = usize
	if csize <= zip64SentinelU32 {
		entry.CompressedSize = uint32(csize)
	} else {
		entry.CompressedSize = zip64SentinelU32
	}
	if usize <= zip64SentinelU32 {
		entry.UncompressedSize = uint32(usize)
	} else {
		entry.UncompressedSize = zip64SentinelU32
	}
	if zip64 {
		entry.UsesZIP64 = true
	}
}
