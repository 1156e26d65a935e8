package scene

// Node is an element of the scene graph. A node with both Geometry and
// Material is a mesh; any node may have children.
type Node struct {
	Name     string
	Parent   *Node
	Children []*Node

	Geometry *Geometry
	Material *Material

	Visible bool
}

// NewScene creates an empty root container.
func NewScene() *Node {
	return NewGroup("scene")
}

// NewGroup creates a node without geometry.
func NewGroup(name string) *Node {
	return &Node{Name: name, Visible: true}
}

// NewMesh creates a mesh node.
func NewMesh(name string, geom *Geometry, mat *Material) *Node {
	return &Node{
		Name:     name,
		Geometry: geom,
		Material: mat,
		Visible:  true,
	}
}

// IsMesh reports whether the node carries renderable geometry.
func (n *Node) IsMesh() bool {
	return n.Geometry != nil && n.Material != nil
}

// Add appends child to the node's children, detaching it from its previous parent.
func (n *Node) Add(child *Node) {
	if child == nil || child == n {
		return
	}
	if child.Parent != nil {
		child.Parent.Remove(child)
	}
	child.Parent = n
	n.Children = append(n.Children, child)
}

// Remove detaches child. Returns false if child is not a direct child of n.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return true
		}
	}
	return false
}

// Traverse calls fn for n and every descendant, depth-first, parents before
// children, children in insertion order.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// Meshes returns every mesh under n (including n) in traversal order.
func (n *Node) Meshes() []*Node {
	var meshes []*Node
	n.Traverse(func(node *Node) {
		if node.IsMesh() {
			meshes = append(meshes, node)
		}
	})
	return meshes
}

// FindByName returns the first node in traversal order with the given name.
func (n *Node) FindByName(name string) *Node {
	var found *Node
	n.Traverse(func(node *Node) {
		if found == nil && node.Name == name {
			found = node
		}
	})
	return found
}

// Bounds returns the union of all mesh bounds under n.
func (n *Node) Bounds() Bounds {
	b := EmptyBounds()
	n.Traverse(func(node *Node) {
		if node.IsMesh() {
			b.Union(node.Geometry.Bounds)
		}
	})
	return b
}
