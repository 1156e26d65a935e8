package grf

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/midgard-paint/internal/fixture"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	data := fixture.GRF(
		fixture.GRFFile{Name: "data/test.txt", Content: []byte("Hello, GRF!")},
		fixture.GRFFile{Name: "data/model/Tree.rsm", Content: bytes.Repeat([]byte("GRSM"), 64)},
		fixture.GRFFile{Name: "data/texture/나무.bmp", Content: []byte("BM fake bitmap data")},
		fixture.GRFFile{Name: "data/raw.bin", Content: []byte("12345678"), Stored: true},
	)
	a, err := NewReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return a
}

func TestList(t *testing.T) {
	a := testArchive(t)
	want := []string{"data/model/tree.rsm", "data/raw.bin", "data/test.txt", "data/texture/나무.bmp"}
	got := a.List()
	if len(got) != len(want) {
		t.Fatalf("List = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if a.Version() != 0x200 {
		t.Errorf("Version = 0x%x", a.Version())
	}
}

func TestRead(t *testing.T) {
	a := testArchive(t)

	tests := []struct {
		name string
		want []byte
	}{
		{"data/test.txt", []byte("Hello, GRF!")},
		{"DATA\\TEST.TXT", []byte("Hello, GRF!")},
		{"data/model/tree.rsm", bytes.Repeat([]byte("GRSM"), 64)},
		{"data\\texture\\나무.bmp", []byte("BM fake bitmap data")},
		{"data/raw.bin", []byte("12345678")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Read(tt.name)
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("Read = %q, want %q", got, tt.want)
			}
		})
	}

	if _, err := a.Read("data/missing.txt"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}

func TestMatch(t *testing.T) {
	a := testArchive(t)
	got, err := a.Match("data/model/*.rsm")
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if len(got) != 1 || got[0] != "data/model/tree.rsm" {
		t.Errorf("Match = %v", got)
	}
	if _, err := a.Match("["); err == nil {
		t.Error("expected bad pattern error")
	}
}

func TestFS(t *testing.T) {
	fsys := testArchive(t).FS()

	data, err := fs.ReadFile(fsys, "data/test.txt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "Hello, GRF!" {
		t.Errorf("ReadFile = %q", data)
	}

	f, err := fsys.Open("data/test.txt")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	info, _ := f.Stat()
	if info.Name() != "test.txt" || info.Size() != 11 || info.IsDir() {
		t.Errorf("Stat = %s %d", info.Name(), info.Size())
	}

	if _, err := fsys.Open("/abs"); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("invalid path error = %v", err)
	}
	if _, err := fsys.Open("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("missing path error = %v", err)
	}
}

func TestOpenFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.grf")
	if err := os.WriteFile(path, fixture.GRF(fixture.GRFFile{Name: "a.txt", Content: []byte("a")}), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer a.Close()
	if !a.Contains("A.TXT") {
		t.Error("Contains should ignore case")
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := NewReader(bytes.NewReader(bytes.Repeat([]byte("x"), 64))); !errors.Is(err, ErrInvalidMagic) {
		t.Errorf("bad magic error = %v", err)
	}

	data := fixture.GRF(fixture.GRFFile{Name: "a.txt", Content: []byte("a")})
	data[42] = 0x03
	if _, err := NewReader(bytes.NewReader(data)); !errors.Is(err, ErrUnsupportedVersion) {
		t.Errorf("bad version error = %v", err)
	}

	if _, err := Open(filepath.Join(t.TempDir(), "missing.grf")); err == nil {
		t.Error("expected error for missing file")
	}
}
