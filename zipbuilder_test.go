package zipstream

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"

	"github.com/klauspost/compress/flate"
)

// archiveBuilder assembles a synthetic ZIP byte stream one record at a time,
// so tests need no fixture files: CRC-32 and DEFLATE are primitives a test
// may use directly even though the reader under test treats them as
// external collaborators.
type archiveBuilder struct {
	buf     bytes.Buffer
	offsets []int
	names   []string
}

func newArchiveBuilder() *archiveBuilder {
	return &archiveBuilder{}
}

func putU16(b *bytes.Buffer, v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.Write(tmp[:])
}

func putU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func deflateBytes(content []byte) []byte {
	var out bytes.Buffer
	fw, err := flate.NewWriter(&out, flate.BestSpeed)
	if err != nil {
		panic(err)
	}
	if _, err := fw.Write(content); err != nil {
		panic(err)
	}
	if err := fw.Close(); err != nil {
		panic(err)
	}
	return out.Bytes()
}

// entryOpts controls how addEntry lays out one local file header + payload.
type entryOpts struct {
	name       string
	content    []byte
	deflate    bool
	dd         bool   // use a data descriptor instead of in-header sizes
	ddNoSig    bool   // data descriptor omits its optional signature
	ddZip64    bool   // data descriptor uses 8-byte size fields
	zip64Extra bool   // LFH carries a ZIP64 extra with sentinel sizes
	method     uint16 // overrides deflate-derived method when non-zero use; 0 means STORED unless deflate is true
}

func (a *archiveBuilder) addEntry(o entryOpts) {
	a.offsets = append(a.offsets, a.buf.Len())
	a.names = append(a.names, o.name)

	method := uint16(0)
	payload := o.content
	if o.deflate {
		method = 8
		payload = deflateBytes(o.content)
	}
	if o.method != 0 {
		method = o.method
	}
	crc := crc32.ChecksumIEEE(o.content)

	flags := uint16(0)
	if o.dd {
		flags |= 0x8
	}

	putU32(&a.buf, sigLocalFile)
	putU16(&a.buf, 20)     // version needed
	putU16(&a.buf, flags)  // flags
	putU16(&a.buf, method) // method
	putU16(&a.buf, 0)      // mod time
	putU16(&a.buf, 0x21)   // mod date (a valid DOS date, 1980-01-01)

	var extra bytes.Buffer
	lfhCRC := crc
	lfhCSize := uint32(len(payload))
	lfhUSize := uint32(len(o.content))
	if o.dd {
		lfhCRC, lfhCSize, lfhUSize = 0, 0, 0
	}
	if o.zip64Extra {
		lfhCSize = 0xFFFFFFFF
		lfhUSize = 0xFFFFFFFF
		putU16(&extra, 0x0001) // ZIP64 extended-information header id
		putU16(&extra, 16)     // field size: two 8-byte sizes
		var u64 [8]byte
		binary.LittleEndian.PutUint64(u64[:], uint64(len(o.content))) // uncompressed first
		extra.Write(u64[:])
		binary.LittleEndian.PutUint64(u64[:], uint64(len(payload))) // compressed second
		extra.Write(u64[:])
	}

	putU32(&a.buf, lfhCRC)
	putU32(&a.buf, lfhCSize)
	putU32(&a.buf, lfhUSize)
	putU16(&a.buf, uint16(len(o.name)))
	putU16(&a.buf, uint16(extra.Len()))
	a.buf.WriteString(o.name)
	a.buf.Write(extra.Bytes())
	a.buf.Write(payload)

	if o.dd {
		if !o.ddNoSig {
			putU32(&a.buf, sigDataDescriptor)
		}
		putU32(&a.buf, crc)
		if o.ddZip64 {
			var u64 [8]byte
			binary.LittleEndian.PutUint64(u64[:], uint64(len(payload)))
			a.buf.Write(u64[:])
			binary.LittleEndian.PutUint64(u64[:], uint64(len(o.content)))
			a.buf.Write(u64[:])
		} else {
			putU32(&a.buf, uint32(len(payload)))
			putU32(&a.buf, uint32(len(o.content)))
		}
	}
}

// addSplitMarker prepends the single-segment split marker; must be called
// before any addEntry call.
func (a *archiveBuilder) addSplitMarker() {
	var marker bytes.Buffer
	putU32(&marker, sigSplitMarker)
	a.buf = *bytes.NewBuffer(append(marker.Bytes(), a.buf.Bytes()...))
}

// finish appends a minimal central directory (one CFH per entry) and EOCD,
// so the trailer walker has real records to skip past.
func (a *archiveBuilder) finish() []byte {
	cdStart := a.buf.Len()
	for i, name := range a.names {
		putU32(&a.buf, sigCentralFile)
		putU16(&a.buf, 20) // version made by
		putU16(&a.buf, 20) // version needed
		putU16(&a.buf, 0)  // flags
		putU16(&a.buf, 0)  // method
		putU16(&a.buf, 0)  // mod time
		putU16(&a.buf, 0x21)
		putU32(&a.buf, 0) // crc
		putU32(&a.buf, 0) // compressed size
		putU32(&a.buf, 0) // uncompressed size
		putU16(&a.buf, uint16(len(name)))
		putU16(&a.buf, 0) // extra len
		putU16(&a.buf, 0) // comment len
		putU16(&a.buf, 0) // disk number start
		putU16(&a.buf, 0) // internal attrs
		putU32(&a.buf, 0) // external attrs
		putU32(&a.buf, uint32(a.offsets[i]))
		a.buf.WriteString(name)
	}
	cdSize := a.buf.Len() - cdStart

	putU32(&a.buf, sigEndOfCentral)
	putU16(&a.buf, 0) // disk number
	putU16(&a.buf, 0) // disk with CD start
	putU16(&a.buf, uint16(len(a.names)))
	putU16(&a.buf, uint16(len(a.names)))
	putU32(&a.buf, uint32(cdSize))
	putU32(&a.buf, uint32(cdStart))
	putU16(&a.buf, 0) // comment len

	return a.buf.Bytes()
}
