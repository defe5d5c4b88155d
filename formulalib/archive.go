// Archive decompression for stored library files, grounded on
// _examples/launix-de-memcp/scm/streams.go's xz reader/writer wiring
// (the "xzcat" builtin). lz4 has no in-snapshot caller in the teacher
// (DESIGN.md) but is wired here as the companion fast codec the DOMAIN
// STACK table assigns it: xz for distribution-size archives, lz4 for
// quick formulad round-trips. go-units formats the decompressed size for
// the load/save log line the table promises.
package formulalib

import (
	"fmt"
	"io"

	units "github.com/docker/go-units"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Codec names a library archive's compression scheme.
type Codec int

const (
	// CodecNone is an uncompressed library file.
	CodecNone Codec = iota
	// CodecXZ is an .xz-compressed archive (ulikunitz/xz).
	CodecXZ
	// CodecLZ4 is an .lz4-compressed archive (pierrec/lz4/v4).
	CodecLZ4
)

// DecompressReader wraps r in the decoder codec names, or returns r
// unchanged for CodecNone.
func DecompressReader(r io.Reader, codec Codec) (io.Reader, error) {
	switch codec {
	case CodecXZ:
		return xz.NewReader(r)
	case CodecLZ4:
		return lz4.NewReader(r), nil
	default:
		return r, nil
	}
}

// CompressWriter wraps w in the encoder codec names, or returns w
// unchanged (with a no-op Close) for CodecNone.
func CompressWriter(w io.Writer, codec Codec) (io.WriteCloser, error) {
	switch codec {
	case CodecXZ:
		return xz.NewWriter(w)
	case CodecLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nopCloser{w}, nil
	}
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// LoadCompressed decompresses r per codec, loads its entries, and
// returns a one-line human-readable summary of the decompressed size
// (e.g. "formula library: 42 entries, 128kB decompressed"), matching
// the DOMAIN STACK table's "human-readable byte counts in library
// load/save log lines".
func LoadCompressed(r io.Reader, codec Codec) ([]FormulaEntry, string, error) {
	dec, err := DecompressReader(r, codec)
	if err != nil {
		return nil, "", err
	}
	counted := &countingReader{r: dec}
	entries, err := LoadEntries(counted)
	if err != nil {
		return nil, "", err
	}
	summary := fmt.Sprintf("formula library: %d entries, %s decompressed", len(entries), units.HumanSize(float64(counted.n)))
	return entries, summary, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
