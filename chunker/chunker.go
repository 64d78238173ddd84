// Package chunker turns a byte stream into a sequence of content-defined
// chunks, splitting at boundaries found by the rolling hasher and bounded
// by Params.Min/Params.Max.
package chunker

import (
	"bufio"
	"fmt"
	"io"

	"github.com/blockvault/sealvault/digest"
	"github.com/blockvault/sealvault/rolling"
)

// Chunk describes one content-defined slice of the input stream.
type Chunk struct {
	Offset int64
	Size   int
	Digest digest.Digest
}

// Chunker reads from an underlying io.Reader and emits (Chunk, payload)
// pairs at content-defined boundaries. Generalizes the teacher's
// chunk.ChunkReader, which paired a fastcdc.Chunker with a buffer and a
// Hasher factory; here the boundary detector is the spec's windowed
// rolling hasher instead of FastCDC's gear-table running sum.
type Chunker struct {
	r      *bufio.Reader
	algo   string
	params Params
	offset int64
}

// New creates a Chunker. algo selects the digest algorithm ("" defaults
// to sha256, see digest.Hasher).
func New(r io.Reader, algo string, params Params) (*Chunker, error) {
	if params.Min <= 0 || params.Max <= 0 || params.Min > params.Max {
		return nil, fmt.Errorf("chunker: invalid params: min=%d max=%d", params.Min, params.Max)
	}
	return &Chunker{
		r:      bufio.NewReaderSize(r, params.Max),
		algo:   algo,
		params: params,
	}, nil
}

// Next reads and returns the next chunk, or io.EOF when the stream is
// exhausted. The rolling hasher is reset at the start of every call, so
// each chunk's boundary is a pure function of its own bytes — it does
// not depend on bytes from the preceding chunk.
func (c *Chunker) Next() (Chunk, []byte, error) {
	off := c.offset
	rh := rolling.NewWithParams(nil, c.params.BoundaryBits)
	buf := make([]byte, 0, c.params.Max)

	for {
		b, err := c.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				if len(buf) == 0 {
					return Chunk{}, nil, io.EOF
				}
				break
			}
			return Chunk{}, nil, fmt.Errorf("chunker: read: %w", err)
		}

		buf = append(buf, b)
		boundary := rh.FeedByte(b)

		if len(buf) >= c.params.Max {
			break
		}
		if boundary && len(buf) >= c.params.Min {
			break
		}
	}

	d, err := digest.Sum(c.algo, buf)
	if err != nil {
		return Chunk{}, nil, err
	}

	c.offset += int64(len(buf))
	return Chunk{Offset: off, Size: len(buf), Digest: d}, buf, nil
}
