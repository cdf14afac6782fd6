package zipstream

import (
	"archive/zip"
	"bytes"
	"io"

	"golang.org/x/text/encoding"
)

// Option configures a Reader at construction time.
type Option func(*Reader)

// WithEncoding sets the character set used to decode file names when the
// UTF-8 general-purpose bit is clear. Defaults to CP437, the traditional
// ZIP name encoding, if never set.
func WithEncoding(enc encoding.Encoding) Option {
	return func(z *Reader) { z.encoding = enc }
}

// WithUnicodeExtraFields enables overriding a non-UTF-8 name with an InfoZIP
// Unicode Path extra field, when present and its CRC matches the raw name.
func WithUnicodeExtraFields(enabled bool) Option {
	return func(z *Reader) { z.useUnicodeExtra = enabled }
}

// WithStoredDataDescriptor allows STORED entries that use a data descriptor
// to be read at all. Without it, reading such an entry fails with
// Unsupported(DataDescriptor).
func WithStoredDataDescriptor(allowed bool) Option {
	return func(z *Reader) { z.allowStoredDD = allowed }
}

// Reader is a forward-only, synchronous reader of ZIP entries and their
// decompressed content from an unseekable byte stream. Not safe for
// concurrent use: the current-entry cursor, its inflator and running CRC,
// and the push-back source's look-ahead are mutated in place across calls.
type Reader struct {
	src *pushbackSource

	encoding        encoding.Encoding
	useUnicodeExtra bool
	allowStoredDD   bool

	closed              bool
	hitCentralDirectory bool
	entriesRead         int

	cur           *Entry
	curReader     io.Reader
	curSum        *checksumReader
	curDeflate    *deflateReader
	curStored     *storedReader
	curCached     *bytes.Reader
	curEOFHandled bool
}

// NewReader wraps r, which need not support seeking: every byte is consumed
// exactly once, forward, aside from the bounded look-ahead the push-back
// source performs internally.
func NewReader(r io.Reader, opts ...Option) *Reader {
	z := &Reader{src: newPushbackSource(r)}
	for _, opt := range opts {
		opt(z)
	}
	return z
}

// NextEntry closes whatever entry is current, parses the next local file
// header, and returns its metadata. It returns io.EOF once the central
// directory (or end of archive) has been reached, and ErrClosed after
// Close.
func (z *Reader) NextEntry() (*Entry, error) {
	if z.closed {
		return nil, ErrClosed
	}
	if z.hitCentralDirectory {
		return nil, io.EOF
	}
	if z.cur != nil {
		if err := z.closeCurrentEntry(); err != nil {
			return nil, err
		}
	}

	kind, fixed, err := z.readFixedHeader(z.entriesRead == 0)
	if err != nil {
		return nil, err
	}

	switch kind {
	case headerCentralFile, headerArchiveExtra:
		z.hitCentralDirectory = true
		if err := z.skipTrailer(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	case headerOther:
		return nil, io.EOF
	}

	entry, err := z.parseLocalHeader(fixed)
	if err != nil {
		return nil, err
	}
	entry.Index = z.entriesRead
	z.entriesRead++
	z.cur = entry

	return entry, nil
}

// Read streams the current entry's decompressed content, updating its
// running CRC as bytes are delivered and reporting io.EOF once the entry is
// exhausted. Calling Read with no current entry (before the first
// NextEntry, or after NextEntry returned io.EOF) itself returns io.EOF.
func (z *Reader) Read(p []byte) (int, error) {
	if z.closed {
		return 0, ErrClosed
	}
	if z.cur == nil {
		return 0, io.EOF
	}
	if err := z.ensureCurReader(); err != nil {
		return 0, err
	}

	n, err := z.curReader.Read(p)
	if err != io.EOF {
		return n, err
	}
	if z.curEOFHandled {
		return n, io.EOF
	}
	z.curEOFHandled = true

	if z.cur.Method == zip.Deflate && z.cur.UsesDataDescriptor {
		if derr := z.finishDeflateDataDescriptor(); derr != nil {
			return n, derr
		}
	}
	if verr := z.verifyChecksum(); verr != nil {
		return n, verr
	}
	return n, io.EOF
}

// Skip discards up to n bytes of the current entry's decompressed content
// by reading and dropping it. It returns the number of bytes actually
// skipped, which is less than n only at end of stream.
func (z *Reader) Skip(n int) (int, error) {
	if n < 0 {
		return 0, errInvalidArgument(nil)
	}
	buf := make([]byte, scratchSize)
	skipped := 0
	for skipped < n {
		want := n - skipped
		if want > len(buf) {
			want = len(buf)
		}
		rn, err := z.Read(buf[:want])
		skipped += rn
		if err != nil {
			if err == io.EOF {
				return skipped, nil
			}
			return skipped, err
		}
	}
	return skipped, nil
}

// Close releases the inflator, if one is currently held, and marks the
// reader closed: every subsequent operation fails with ErrClosed. Partial
// reads of the current entry are not rolled back.
func (z *Reader) Close() error {
	if z.closed {
		return nil
	}
	if z.curDeflate != nil {
		z.curDeflate.release()
		z.curDeflate = nil
	}
	z.cur = nil
	z.curReader = nil
	z.closed = true
	return nil
}

// Buffered returns, and clears, any bytes the push-back source pulled from
// the underlying stream but has not yet handed out. The trailer walk reads
// exactly up to the end of the EOCD comment; bytes beyond it are held here
// only when the look-ahead scan for a STORED entry's data descriptor read
// that far, so the result is often empty. A caller that wants to inspect
// data appended after the archive can use this to recover that look-ahead
// instead of losing it.
func (z *Reader) Buffered() []byte {
	return z.src.buffered()
}

// CanReadEntryData reports whether entry's content can actually be read:
// the method must be supported (STORED or DEFLATED), and either the entry
// has no data descriptor, uses DEFLATE (whose end is self-describing via
// the inflator), or the caller enabled WithStoredDataDescriptor.
func (z *Reader) CanReadEntryData(entry *Entry) bool {
	if entry.Method != zip.Store && entry.Method != zip.Deflate {
		return false
	}
	if !entry.UsesDataDescriptor {
		return true
	}
	if entry.Method == zip.Deflate {
		return true
	}
	return z.allowStoredDD
}

// Matches reports whether b[:n] begins with the local file header, EOCD,
// data descriptor, or single-segment split marker signature. It is a prefix
// test only; n may be less than 4, in which case it never matches.
func Matches(b []byte, n int) bool {
	if n < 4 || len(b) < 4 {
		return false
	}
	switch le32(b[:4]) {
	case sigLocalFile, sigEndOfCentral, sigDataDescriptor, sigSplitMarker:
		return true
	default:
		return false
	}
}

// ensureCurReader lazily builds the per-entry payload reader on the first
// Read call for the current entry, so that an entry the caller never reads
// from is closed without ever touching the decompression machinery.
func (z *Reader) ensureCurReader() error {
	if z.curReader != nil {
		return nil
	}
	entry := z.cur

	if entry.Method != zip.Store && entry.Method != zip.Deflate {
		return errUnsupported(FeatureUnknownCompressionMethod)
	}

	if entry.Method == zip.Store && entry.UsesDataDescriptor {
		if !z.allowStoredDD {
			return errUnsupported(FeatureDataDescriptor)
		}
		content, err := z.locateDataDescriptor(entry, ddLenFor(entry))
		if err != nil {
			return err
		}
		z.curCached = bytes.NewReader(content)
		z.curSum = newChecksumReader(z.curCached)
		z.curReader = z.curSum
		return nil
	}

	if entry.Method == zip.Deflate {
		z.curDeflate = newDeflateReader(z.src)
		z.curSum = newChecksumReader(z.curDeflate)
		z.curReader = z.curSum
		return nil
	}

	z.curStored = newStoredReader(z.src, entry.UncompressedSize64)
	z.curSum = newChecksumReader(z.curStored)
	z.curReader = z.curSum
	return nil
}

// ddLenFor reports the expected data-descriptor payload length (excluding
// its optional signature): 20 bytes once ZIP64 is in play, 12 otherwise.
func ddLenFor(entry *Entry) int {
	if entry.UsesZIP64 {
		return zip64DataDescLen
	}
	return dataDescriptorLen
}

// finishDeflateDataDescriptor reads the data descriptor following a DEFLATED
// entry. Once the inflator reports io.EOF, the stream sits exactly at the
// data descriptor, with no over-read, by construction of countingByteSource
// (see deflate.go), so it is read directly off the stream rather than via
// the look-ahead scan locateDataDescriptor needs for STORED entries.
func (z *Reader) finishDeflateDataDescriptor() error {
	crc, csize, usize, zip64, err := z.parseDataDescriptor()
	if err != nil {
		return err
	}
	applyDataDescriptor(z.cur, crc, csize, usize, zip64)
	return nil
}

// verifyChecksum checks the running CRC-32 and delivered byte count against
// the entry's declared values once the current entry has been read to end
// of stream, mirroring the check archive/zip itself performs in its own
// checksumReader.
func (z *Reader) verifyChecksum() error {
	if z.curSum == nil {
		return nil
	}
	entry := z.cur
	if entry.UncompressedSize64 != 0 && z.curSum.bytes != entry.UncompressedSize64 {
		return errTruncated(io.ErrUnexpectedEOF)
	}
	if entry.CRC32 != 0 && z.curSum.sum() != entry.CRC32 {
		return ErrChecksum
	}
	return nil
}

// bytesReadSoFar reports how many raw input bytes have been consumed from
// the push-back source for the current entry's payload so far, without
// assuming a per-entry reader was ever built: an entry the caller never
// read from reports zero.
func (z *Reader) bytesReadSoFar(entry *Entry) uint64 {
	switch {
	case z.curStored != nil:
		return entry.CompressedSize64 - z.curStored.remainingBytes()
	case z.curDeflate != nil:
		return z.curDeflate.bytesReadFromStream()
	default:
		return 0
	}
}

// closeCurrentEntry realigns the underlying stream immediately past the
// current entry's payload (and data descriptor, if any) so the next
// NextEntry call sees a clean local file header, regardless of how much of
// the entry the caller actually read.
func (z *Reader) closeCurrentEntry() error {
	entry := z.cur
	if entry == nil {
		return nil
	}
	err := z.finishEntry(entry)
	if z.curDeflate != nil {
		z.curDeflate.release()
	}
	z.cur = nil
	z.curReader = nil
	z.curSum = nil
	z.curDeflate = nil
	z.curStored = nil
	z.curCached = nil
	z.curEOFHandled = false
	return err
}

func (z *Reader) finishEntry(entry *Entry) error {
	// Read already drove this entry to its natural end, and for a data
	// descriptor already parsed it too, so the stream sits exactly at the
	// next record's boundary and there is nothing left to realign.
	if z.curEOFHandled {
		return nil
	}

	if !entry.UsesDataDescriptor {
		// Works even for a method this reader refused to decompress:
		// the compressed size is known from the header either way.
		read := z.bytesReadSoFar(entry)
		return z.skipN64(entry.CompressedSize64 - read)
	}

	if entry.Method == zip.Store {
		if z.curCached != nil {
			// ensureCurReader already materialized the whole entry and
			// parsed its data descriptor.
			return nil
		}
		_, err := z.locateDataDescriptor(entry, ddLenFor(entry))
		return err
	}

	if entry.Method == zip.Deflate {
		if z.curDeflate == nil {
			z.curDeflate = newDeflateReader(z.src)
		}
		if err := drainToEOF(z.curDeflate); err != nil {
			return err
		}
		return z.finishDeflateDataDescriptor()
	}

	// An unsupported compression method with a data descriptor: locate
	// the boundary the same way a STORED entry does. The scan is pure
	// byte-pattern matching, not method-aware, so it applies here too;
	// the located content is simply discarded.
	_, err := z.locateDataDescriptor(entry, ddLenFor(entry))
	return err
}

// drainToEOF reads r to completion, discarding its output.
func drainToEOF(r io.Reader) error {
	buf := make([]byte, scratchSize)
	for {
		_, err := r.Read(buf)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// skipN64 discards exactly n bytes from the push-back source, the
// ZIP64-sized counterpart to skipTrailer's skipN (which only ever deals in
// small, int-sized trailer offsets).
func (z *Reader) skipN64(n uint64) error {
	buf := make([]byte, scratchSize)
	for n > 0 {
		want := n
		if want > uint64(len(buf)) {
			want = uint64(len(buf))
		}
		read, err := z.src.read(buf[:want])
		n -= uint64(read)
		if err != nil {
			if n > 0 {
				return errUnexpectedEOF(err)
			}
			break
		}
	}
	return nil
}
