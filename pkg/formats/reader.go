package formats

import (
	"bytes"
	"encoding/binary"
	"io"
)

// binReader reads little-endian values and remembers the first failure,
// so parsers can read a whole record and check the error once.
type binReader struct {
	r   *bytes.Reader
	err error
}

func newBinReader(data []byte) *binReader {
	return &binReader{r: bytes.NewReader(data)}
}

// read decodes into v unless a previous read already failed.
func (br *binReader) read(v any) {
	if br.err != nil {
		return
	}
	if err := binary.Read(br.r, binary.LittleEndian, v); err != nil {
		br.err = err
	}
}

func (br *binReader) int32() int32 {
	var v int32
	br.read(&v)
	return v
}

func (br *binReader) float32() float32 {
	var v float32
	br.read(&v)
	return v
}

func (br *binReader) uint8() uint8 {
	var v uint8
	br.read(&v)
	return v
}

// fixedString reads an n-byte NUL-padded EUC-KR string.
func (br *binReader) fixedString(n int) string {
	if br.err != nil {
		return ""
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br.r, buf); err != nil {
		br.err = err
		return ""
	}
	return FixedStringToUTF8(buf)
}

func (br *binReader) skip(n int64) {
	if br.err != nil {
		return
	}
	if int64(br.r.Len()) < n {
		br.err = io.ErrUnexpectedEOF
		return
	}
	br.r.Seek(n, io.SeekCurrent)
}

// count reads an int32 element count and validates it against limit.
func (br *binReader) count(limit int32) (int, bool) {
	n := br.int32()
	if br.err != nil {
		return 0, false
	}
	if n < 0 || n > limit {
		return 0, false
	}
	return int(n), true
}
