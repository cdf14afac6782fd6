package zipstream

import "io"

// storedReader handles the common case (STORED, no data descriptor): a
// byte-exact copy from the push-back source, tracked against the declared
// uncompressed size, which equals the compressed size for STORED entries,
// since no compression took place.
type storedReader struct {
	src       *pushbackSource
	remaining uint64
}

func newStoredReader(src *pushbackSource, size uint64) *storedReader {
	return &storedReader{src: src, remaining: size}
}

// remainingBytes reports how many declared bytes have not yet been copied
// out.
func (r *storedReader) remainingBytes() uint64 { return r.remaining }

func (r *storedReader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > r.remaining {
		p = p[:r.remaining]
	}
	n, err := r.src.read(p)
	r.remaining -= uint64(n)
	if err == io.EOF && r.remaining > 0 {
		return n, errTruncated(io.ErrUnexpectedEOF)
	}
	if r.remaining == 0 && err == nil {
		// Signal completion on the read that exhausts the declared size,
		// rather than waiting for a subsequent zero-byte call: the next
		// thing in the stream is unrelated entry data, not more of ours.
		return n, io.EOF
	}
	return n, err
}
