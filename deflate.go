package zipstream

import (
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// countingByteSource adapts the push-back source to satisfy both io.Reader
// and io.ByteReader, and counts every byte actually handed out. Both the
// standard library's compress/flate and klauspost/compress/flate special-case
// an io.ByteReader input and pull it one byte (or one declared-length
// stored-block) at a time instead of wrapping it in their own read-ahead
// buffer, so every byte this wrapper returns is one the inflator immediately
// consumes.
type countingByteSource struct {
	src      *pushbackSource
	consumed uint64
}

func (c *countingByteSource) Read(p []byte) (int, error) {
	n, err := c.src.read(p)
	c.consumed += uint64(n)
	return n, err
}

func (c *countingByteSource) ReadByte() (byte, error) {
	b, err := c.src.readByte()
	if err == nil {
		c.consumed++
	}
	return b, err
}

// inflatorPool recycles the inflators flate.NewReader returns, via
// flate.Resetter, avoiding an allocation per entry. It is shared by every
// Reader in the process; sync.Pool is itself safe for concurrent use, so no
// extra locking is needed around it.
var inflatorPool sync.Pool

func acquireInflator(r io.Reader) io.ReadCloser {
	if v := inflatorPool.Get(); v != nil {
		fr := v.(io.ReadCloser)
		_ = fr.(flate.Resetter).Reset(r, nil)
		return fr
	}
	return flate.NewReader(r)
}

func releaseInflator(fr io.ReadCloser) {
	inflatorPool.Put(fr)
}

// deflateReader is a pull-driven wrapper over the inflator that classifies
// its terminal error into the reader's own error kinds.
type deflateReader struct {
	src  *countingByteSource
	fr   io.ReadCloser
	done bool
}

func newDeflateReader(src *pushbackSource) *deflateReader {
	cs := &countingByteSource{src: src}
	return &deflateReader{src: cs, fr: acquireInflator(cs)}
}

func (d *deflateReader) Read(p []byte) (int, error) {
	if d.done {
		return 0, io.EOF
	}
	// Raw DEFLATE (RFC 1951), unlike zlib, has no in-stream preset-dictionary
	// signal. A preset dictionary can only be supplied out-of-band via Reset,
	// which this reader never does, so FeatureDictionary never actually
	// triggers here; it stays in the Feature enum for callers pattern-matching
	// on it.
	n, err := d.fr.Read(p)
	switch err {
	case nil:
		return n, nil
	case io.EOF:
		d.done = true
		return n, io.EOF
	case io.ErrUnexpectedEOF:
		return n, errTruncated(err)
	default:
		return n, errMalformedDeflate(err)
	}
}

// bytesReadFromStream reports how many raw bytes have been pulled from the
// push-back source to feed the inflator so far.
func (d *deflateReader) bytesReadFromStream() uint64 { return d.src.consumed }

// release returns the inflator to the pool. Must only be called once the
// entry is fully closed.
func (d *deflateReader) release() { releaseInflator(d.fr) }
