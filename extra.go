package zipstream

// extraZip64ID is the ZIP64 extended-information extra field's header id.
const extraZip64ID = 0x0001

// scanZip64Extra looks for header id 0x0001 in the entry's raw extra field
// and, for each of the two sizes still holding the ZIP64 sentinel
// (0xFFFFFFFF), replaces it with the matching 8-byte value from the extra
// block. The appnote stores the values uncompressed-size-first,
// compressed-size-second, and omits whichever size didn't need widening, so
// the cursor advances one 8-byte field per sentinel actually seen, in that
// order.
//
// When entry.UsesDataDescriptor, only UsesZIP64 is recorded and the sizes
// are left alone: they are zero placeholders in the local header and get
// back-filled from the data descriptor instead.
func scanZip64Extra(entry *Entry, needUncompressed, needCompressed bool) error {
	buf := readBuf(entry.Extra)
	for len(buf) >= 4 {
		id := buf.uint16()
		size := int(buf.uint16())
		if len(buf) < size {
			return ErrFormat
		}
		field := buf.sub(size)
		if id != extraZip64ID {
			continue
		}
		entry.UsesZIP64 = true
		if entry.UsesDataDescriptor {
			// Sizes will be back-filled from the data descriptor instead;
			// still record that ZIP64 is in play for the DD-length choice.
			continue
		}
		if needUncompressed {
			if len(field) < 8 {
				return ErrFormat
			}
			entry.UncompressedSize64 = field.uint64()
		}
		if needCompressed {
			if len(field) < 8 {
				return ErrFormat
			}
			entry.CompressedSize64 = field.uint64()
		}
	}
	return nil
}
