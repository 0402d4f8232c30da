package pathtree

// Leaf is one row produced by flattening a Node: a terminal (scalar or
// Unit) value at a given pre-order position and path.
type Leaf struct {
	ArgIdx   int
	ArgPath  string
	Kind     Kind
	Str      string
	Int      int64
	Unsigned uint64
	Float    float64
}

// Flatten walks root in pre-order and returns one Leaf per terminal node
// (String, Int, Unsigned, Float, or Unit) encountered. Path nodes are purely
// structural: they never produce a row of their own, only contribute their
// children's names to the accumulated arg_path.
//
// arg_path is built by joining ancestor names with "/"; an empty name
// segment is skipped unless this is the very first leaf emitted overall
// (arg_idx == 0), which always receives a "/" prefix even if its nearest
// named ancestor's name is empty. This guarantees every arg_path begins
// with "/" while still collapsing consecutive empty segments elsewhere.
func Flatten(root Node) []Leaf {
	var leaves []Leaf
	argIdx := 0

	var walk func(n Node, path string)
	walk = func(n Node, path string) {
		if n.Kind == KindPath {
			for _, entry := range n.Path {
				childPath := path
				if entry.Name != "" || argIdx == 0 {
					childPath = path + "/" + entry.Name
				}
				walk(entry.Node, childPath)
			}
			return
		}

		leaves = append(leaves, Leaf{
			ArgIdx:   argIdx,
			ArgPath:  path,
			Kind:     n.Kind,
			Str:      n.Str,
			Int:      n.Int,
			Unsigned: n.Unsigned,
			Float:    n.Float,
		})
		argIdx++
	}

	walk(root, "")
	return leaves
}
