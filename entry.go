package zipstream

import (
	"archive/zip"
	"time"
)

// Entry is the metadata for one archive entry. It embeds zip.FileHeader so
// callers already using archive/zip's value types (Mode, Modified, IsDir
// helpers via the method below) don't need a parallel struct. CRC32 and the
// two sizes may read as zero at first and are back-filled once a data
// descriptor or ZIP64 extra has been consulted; UsesZIP64/UsesDataDescriptor
// tell a caller whether to trust the in-header values or wait for that
// back-fill.
type Entry struct {
	zip.FileHeader

	// NameBytes holds the raw, not-yet-decoded file name bytes exactly as
	// they appeared in the local file header.
	NameBytes []byte

	// UsesZIP64 is true if the entry's extra field carried a ZIP64
	// extended-information block (header id 0x0001), regardless of
	// whether either sentinel size was actually present. It is also set
	// once a data descriptor with 8-byte size fields has been read for
	// the entry.
	UsesZIP64 bool

	// UsesDataDescriptor mirrors general-purpose bit flag 3: sizes/CRC
	// were zero in the local header and are only known after the payload.
	UsesDataDescriptor bool

	// Index is this entry's ordinal position in the archive, starting at
	// zero, in the order NextEntry returned it.
	Index int
}

// IsDir reports whether the entry's name ends in a forward slash, the same
// heuristic archive/zip and the teacher both use; ZIP has no separate
// directory-entry bit.
func (e *Entry) IsDir() bool {
	return len(e.Name) > 0 && e.Name[len(e.Name)-1] == '/'
}

func (e *Entry) utf8Names() bool { return e.Flags&0x800 != 0 }

// msDosTimeToTime converts the packed DOS date/time fields of the local
// file header to a UTC time.Time.
func msDosTimeToTime(dosDate, dosTime uint16) time.Time {
	return time.Date(
		int(dosDate>>9)+1980,
		time.Month(dosDate>>5&0xf),
		int(dosDate&0x1f),
		int(dosTime>>11),
		int(dosTime>>5&0x3f),
		int(dosTime&0x1f)*2,
		0,
		time.UTC,
	)
}
