package zipstream

// skipN discards exactly n bytes from the push-back source.
func (z *Reader) skipN(n int) error {
	if n <= 0 {
		return nil
	}
	buf := make([]byte, scratchSize)
	remaining := n
	for remaining > 0 {
		want := remaining
		if want > len(buf) {
			want = len(buf)
		}
		read, err := z.src.read(buf[:want])
		remaining -= read
		if err != nil {
			if remaining > 0 {
				return errUnexpectedEOF(err)
			}
			break
		}
	}
	return nil
}

// skipTrailer runs once the first CFH or AED signature has been seen where
// an LFH was expected: it advances past the rest of the central directory
// and the end-of-central-directory record.
//
// The CFH skip below is a deliberate under-skip. A central file header is
// 46 fixed bytes, but each one is also followed by a variable-length name,
// extra field, and comment that this skip does not account for. The
// byte-by-byte EOCD scan that follows compensates for that instead of
// skipping the exact right amount. A central directory comment that
// happens to contain the EOCD signature bytes could make this
// mis-terminate; a caller needing strict termination should use a seekable
// reader instead.
func (z *Reader) skipTrailer() error {
	skip := z.entriesRead*centralFileHeaderLen - localFileHeaderLen
	if err := z.skipN(skip); err != nil {
		return err
	}

	if err := z.scanForEOCD(); err != nil {
		return err
	}

	// MIN_EOCD_SIZE(22) - signature(4) - commentLen(2) = 16 bytes of fixed
	// EOCD body remain between the signature and the comment-length field.
	if err := z.skipN(minEOCDLen - 4 - 2); err != nil {
		return err
	}

	var lenBuf [2]byte
	if _, err := z.src.readFull(lenBuf[:]); err != nil {
		return errUnexpectedEOF(err)
	}
	commentLen := int(le16(lenBuf[:]))
	return z.skipN(commentLen)
}

// scanForEOCD is a small state machine tolerant of false starts: a matched
// first byte not followed by the rest of the signature may itself begin a
// new match attempt.
func (z *Reader) scanForEOCD() error {
	want := []byte{0x50, 0x4B, 0x05, 0x06}
	matched := 0
	for matched < len(want) {
		b, err := z.src.readByte()
		if err != nil {
			return errUnexpectedEOF(err)
		}
		if b == want[matched] {
			matched++
			continue
		}
		// A false start: b may itself be the start of a fresh match
		// (e.g. the 0x50 of "PK" appearing inside an unrelated run).
		if b == want[0] {
			matched = 1
		} else {
			matched = 0
		}
	}
	return nil
}
