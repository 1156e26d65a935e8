package fixture

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"sort"
	"strings"

	"golang.org/x/text/encoding/korean"
)

// GRFFile is one archive entry. Stored entries are written uncompressed.
type GRFFile struct {
	Name    string
	Content []byte
	Stored  bool
}

// GRF encodes a version 0x200 archive holding files, names in EUC-KR with
// backslash separators.
func GRF(files ...GRFFile) []byte {
	sorted := append([]GRFFile(nil), files...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var data, table bytes.Buffer
	w := func(b *bytes.Buffer, v any) { binary.Write(b, binary.LittleEndian, v) }

	for _, f := range sorted {
		payload := f.Content
		if !f.Stored {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			zw.Write(f.Content)
			zw.Close()
			payload = z.Bytes()
		}
		aligned := len(payload)
		if aligned%8 != 0 {
			aligned += 8 - aligned%8
		}

		offset := data.Len()
		data.Write(payload)
		data.Write(make([]byte, aligned-len(payload)))

		name := strings.ReplaceAll(f.Name, "/", "\\")
		enc, err := korean.EUCKR.NewEncoder().Bytes([]byte(name))
		if err != nil {
			enc = []byte(name)
		}
		table.Write(enc)
		table.WriteByte(0)
		w(&table, uint32(len(payload)))
		w(&table, uint32(aligned))
		w(&table, uint32(len(f.Content)))
		table.WriteByte(0x01)
		w(&table, uint32(offset))
	}

	var ztable bytes.Buffer
	zw := zlib.NewWriter(&ztable)
	zw.Write(table.Bytes())
	zw.Close()

	var out bytes.Buffer
	header := make([]byte, 46)
	copy(header, "Master of Magic")
	binary.LittleEndian.PutUint32(header[30:], uint32(data.Len()))
	binary.LittleEndian.PutUint32(header[34:], 0)
	binary.LittleEndian.PutUint32(header[38:], uint32(len(sorted)+7))
	binary.LittleEndian.PutUint32(header[42:], 0x200)
	out.Write(header)
	out.Write(data.Bytes())
	w(&out, uint32(ztable.Len()))
	w(&out, uint32(table.Len()))
	out.Write(ztable.Bytes())
	return out.Bytes()
}
