package pathtree

import "testing"

func TestFlatten_DenseArgIdxAndLeadingSlash(t *testing.T) {
	root := Named(
		E("lamports", Unsigned(500)),
		E("owner", String("Ax1...")),
		E("meta", Positional(Int(-1), Unit())),
	)

	leaves := Flatten(root)
	if len(leaves) != 4 {
		t.Fatalf("want 4 leaves, got %d", len(leaves))
	}
	for i, l := range leaves {
		if l.ArgIdx != i {
			t.Errorf("leaf %d: arg_idx = %d, want %d", i, l.ArgIdx, i)
		}
		if l.ArgPath == "" || l.ArgPath[0] != '/' {
			t.Errorf("leaf %d: arg_path %q does not begin with /", i, l.ArgPath)
		}
	}
	if leaves[0].ArgPath != "/lamports" {
		t.Errorf("leaf 0 path = %q, want /lamports", leaves[0].ArgPath)
	}
	if leaves[1].ArgPath != "/owner" {
		t.Errorf("leaf 1 path = %q, want /owner", leaves[1].ArgPath)
	}
	if leaves[2].ArgPath != "/meta/0" {
		t.Errorf("leaf 2 path = %q, want /meta/0", leaves[2].ArgPath)
	}
	if leaves[3].ArgPath != "/meta/1" {
		t.Errorf("leaf 3 path = %q, want /meta/1", leaves[3].ArgPath)
	}
}

func TestFlatten_VariantMarkerAndFields(t *testing.T) {
	root := Variant("claim_pack", Positional(Unsigned(7)))
	leaves := Flatten(root)
	if len(leaves) != 2 {
		t.Fatalf("want 2 leaves (marker + field), got %d", len(leaves))
	}
	if leaves[0].Kind != KindUnit {
		t.Errorf("leaf 0 should be the Unit marker, got kind %v", leaves[0].Kind)
	}
	if leaves[1].Kind != KindUnsigned || leaves[1].Unsigned != 7 {
		t.Errorf("leaf 1 should be the field value 7, got %+v", leaves[1])
	}
}

func TestFlatten_EmptyRootProducesNoLeaves(t *testing.T) {
	root := PathOf()
	leaves := Flatten(root)
	if len(leaves) != 0 {
		t.Fatalf("want 0 leaves for empty root path, got %d", len(leaves))
	}
}

func TestFlatten_OptionNoneIsUnitLeaf(t *testing.T) {
	root := Named(E("redeem_end_date", Option(false, Unsigned(0))))
	leaves := Flatten(root)
	if len(leaves) != 1 {
		t.Fatalf("want 1 leaf, got %d", len(leaves))
	}
	if leaves[0].Kind != KindUnit {
		t.Errorf("None should flatten to a Unit leaf, got %+v", leaves[0])
	}
	if leaves[0].ArgPath != "/redeem_end_date" {
		t.Errorf("arg_path = %q, want /redeem_end_date", leaves[0].ArgPath)
	}
}
