// Package pathtree implements the recursive tagged tree used to represent
// decoded instruction arguments before they are flattened into indexed,
// path-addressed rows.
//
// A Node is one of String, Int, Unsigned, Float, Unit, or Path (an ordered
// list of named subtrees). Decoded instruction types build a Node via their
// own ToPathTree method rather than through reflection, per the "hand-written
// Into<PathTree> per decoded type" alternative.
package pathtree

import "fmt"

// Kind tags the variant a Node holds.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindUnsigned
	KindFloat
	KindUnit
	KindPath
)

// Entry is one named child of a Path node.
type Entry struct {
	Name string
	Node Node
}

// Node is a single tagged value in the tree. Exactly one of the scalar
// fields is meaningful, selected by Kind; Path nodes carry an ordered list
// of Entry children instead.
type Node struct {
	Kind     Kind
	Str      string
	Int      int64
	Unsigned uint64
	Float    float64
	Path     []Entry
}

func String(v string) Node   { return Node{Kind: KindString, Str: v} }
func Int(v int64) Node       { return Node{Kind: KindInt, Int: v} }
func Unsigned(v uint64) Node { return Node{Kind: KindUnsigned, Unsigned: v} }
func Float(v float64) Node   { return Node{Kind: KindFloat, Float: v} }
func Unit() Node             { return Node{Kind: KindUnit} }

// Bool maps a boolean to Int(0|1).
func Bool(v bool) Node {
	if v {
		return Int(1)
	}
	return Int(0)
}

// PathOf builds a Path node from an ordered list of entries.
func PathOf(entries ...Entry) Node {
	return Node{Kind: KindPath, Path: entries}
}

// E is a terse constructor for an Entry, used heavily by ToPathTree methods.
func E(name string, n Node) Entry { return Entry{Name: name, Node: n} }

// Option maps Go's pointer-based optionality onto Option<T>'s PathTree rule:
// Some(v) => subtree of v, None => Unit.
func Option(present bool, n Node) Node {
	if !present {
		return Unit()
	}
	return n
}

// UnitStruct builds the Path[(snake_case_type_name, Unit)] node for a unit
// struct.
func UnitStruct(typeName string) Node {
	return PathOf(E(typeName, Unit()))
}

// Variant builds the non-root-context enum-variant wrapper:
// Path[(name, Unit), (name, Path[...fields...])] — the variant name
// appears twice so the leaf emission yields both a marker row and an
// arguments block.
func Variant(name string, fields Node) Node {
	return PathOf(E(name, Unit()), E(name, fields))
}

// Positional builds a Path of ("0", ...), ("1", ...) entries for
// positional-field structs, tuples, fixed arrays, and Vecs.
func Positional(nodes ...Node) Node {
	entries := make([]Entry, len(nodes))
	for i, n := range nodes {
		entries[i] = E(fmt.Sprintf("%d", i), n)
	}
	return PathOf(entries...)
}

// Named builds a Path of (snake_case_field_name, subtree) entries for a
// struct with named fields.
func Named(entries ...Entry) Node {
	return PathOf(entries...)
}
