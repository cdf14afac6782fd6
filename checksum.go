package zipstream

import (
	"hash"
	"hash/crc32"
)

// crc32IEEE is a one-shot helper over the stdlib CRC-32 primitive.
func crc32IEEE(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// checksumReader wraps an entry's decompressed byte stream, updating a
// running CRC-32 over exactly the bytes delivered to the caller. The
// declared CRC may not be known yet at wrap time, for an entry using a data
// descriptor, so Reader checks it lazily once that value has been
// back-filled.
type checksumReader struct {
	src   byteSource
	hash  hash.Hash32
	bytes uint64
}

func newChecksumReader(src byteSource) *checksumReader {
	return &checksumReader{src: src, hash: crc32.NewIEEE()}
}

func (c *checksumReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	if n > 0 {
		c.hash.Write(p[:n])
		c.bytes += uint64(n)
	}
	return n, err
}

func (c *checksumReader) sum() uint32 { return c.hash.Sum32() }

// byteSource is the minimal surface checksumReader needs from either the
// STORED or DEFLATED per-entry reader.
type byteSource interface {
	Read(p []byte) (int, error)
}
