package formats_test

import (
	"errors"
	"testing"

	"github.com/Faultbox/midgard-paint/internal/fixture"
	"github.com/Faultbox/midgard-paint/pkg/formats"
)

func TestParseRSM(t *testing.T) {
	for _, minor := range []uint8{1, 2, 3, 4, 5} {
		m := fixture.Triangle("tree", "tree\\leaf.bmp")
		m.Minor = minor
		m.Nodes[0].RotKeys = []fixture.RSMRotKey{{Frame: 0, Quat: [4]float32{0, 0, 0, 1}}}

		rsm, err := formats.ParseRSM(m.Bytes())
		if err != nil {
			t.Fatalf("v1.%d: ParseRSM: %v", minor, err)
		}

		if rsm.Version.Minor != minor {
			t.Errorf("v1.%d: version = %s", minor, rsm.Version)
		}
		if rsm.RootNode != "tree" || len(rsm.Nodes) != 1 {
			t.Fatalf("v1.%d: root %q with %d nodes", minor, rsm.RootNode, len(rsm.Nodes))
		}
		if rsm.Textures[0] != "tree\\leaf.bmp" {
			t.Errorf("v1.%d: texture = %q", minor, rsm.Textures[0])
		}

		n := rsm.Nodes[0]
		if len(n.Vertices) != 3 || len(n.Faces) != 1 || len(n.TexCoords) != 3 {
			t.Errorf("v1.%d: node has %d vertices, %d faces, %d texcoords", minor, len(n.Vertices), len(n.Faces), len(n.TexCoords))
		}
		if n.Vertices[1] != [3]float32{1, 0, 0} {
			t.Errorf("v1.%d: vertex 1 = %v", minor, n.Vertices[1])
		}
		if n.Scale != [3]float32{1, 1, 1} {
			t.Errorf("v1.%d: scale = %v", minor, n.Scale)
		}
		if len(n.RotKeys) != 1 || n.RotKeys[0].Quaternion[3] != 1 {
			t.Errorf("v1.%d: rotation keys = %+v", minor, n.RotKeys)
		}
		if n.TexCoords[2].Color != [4]uint8{255, 255, 255, 255} {
			t.Errorf("v1.%d: texcoord color = %v", minor, n.TexCoords[2].Color)
		}
		if minor < 4 && rsm.Alpha != 1 {
			t.Errorf("v1.%d: alpha = %f, want 1", minor, rsm.Alpha)
		}
	}
}

func TestParseRSMHierarchy(t *testing.T) {
	m := fixture.RSM{
		Root: "base",
		Nodes: []fixture.RSMNode{
			{Name: "base", Parent: "base"},
			{Name: "arm", Parent: "base"},
			{Name: "hand", Parent: "arm"},
			{Name: "flag", Parent: "base"},
		},
	}
	rsm, err := formats.ParseRSM(m.Bytes())
	if err != nil {
		t.Fatalf("ParseRSM: %v", err)
	}

	children := rsm.ChildNodes("base")
	if len(children) != 2 || children[0].Name != "arm" || children[1].Name != "flag" {
		t.Errorf("ChildNodes(base) = %v", children)
	}
	if rsm.NodeByName("hand") == nil || rsm.NodeByName("missing") != nil {
		t.Error("NodeByName returned wrong result")
	}
	if rsm.TotalFaceCount() != 0 {
		t.Errorf("TotalFaceCount = %d", rsm.TotalFaceCount())
	}
}

func TestParseRSMKoreanNames(t *testing.T) {
	m := fixture.Triangle("나무", "나무\\잎.bmp")
	rsm, err := formats.ParseRSM(m.Bytes())
	if err != nil {
		t.Fatalf("ParseRSM: %v", err)
	}
	if rsm.Nodes[0].Name != "나무" || rsm.Textures[0] != "나무\\잎.bmp" {
		t.Errorf("names decoded as %q / %q", rsm.Nodes[0].Name, rsm.Textures[0])
	}
}

func TestParseRSMErrors(t *testing.T) {
	valid := fixture.Triangle("box", "box.bmp").Bytes()

	badVersion := append([]byte(nil), valid...)
	badVersion[5] = 9

	v2 := append([]byte(nil), valid...)
	v2[4] = 2

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, formats.ErrTruncatedRSMData},
		{"bad magic", append([]byte("XRSM"), valid[4:]...), formats.ErrInvalidRSMMagic},
		{"minor out of range", badVersion, formats.ErrUnsupportedRSMVersion},
		{"rsm2", v2, formats.ErrUnsupportedRSMVersion},
		{"cut in header", valid[:20], formats.ErrTruncatedRSMData},
		{"cut in node", valid[:len(valid)-10], formats.ErrTruncatedRSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := formats.ParseRSM(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"data\\model\\Tree.RSM", "data/model/tree.rsm"},
		{"./texture/a.bmp", "texture/a.bmp"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := formats.NormalizePath(tt.in); got != tt.want {
			t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
