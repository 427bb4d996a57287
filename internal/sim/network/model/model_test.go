package model

import "testing"

func TestFaceOppositeRoundTrip(t *testing.T) {
	for _, f := range Faces {
		if f.Opposite().Opposite() != f {
			t.Fatalf("%s opposite twice = %s", f, f.Opposite().Opposite())
		}
		if f.Opposite() == f {
			t.Fatalf("%s is its own opposite", f)
		}
		p := DimPos{Dim: "overworld", X: 3, Y: 4, Z: 5}
		if got := p.Offset(f).Offset(f.Opposite()); got != p {
			t.Fatalf("offset %s and back = %v, want %v", f, got, p)
		}
	}
	if FaceNone.Opposite() != FaceNone {
		t.Fatalf("none opposite should stay none")
	}
}

func TestParseFace(t *testing.T) {
	for _, f := range Faces {
		got, ok := ParseFace(f.String())
		if !ok || got != f {
			t.Fatalf("ParseFace(%q)=%v,%v", f.String(), got, ok)
		}
	}
	if got, ok := ParseFace("sideways"); ok || got != FaceNone {
		t.Fatalf("ParseFace(sideways)=%v,%v, want none,false", got, ok)
	}
}

func TestDimPosStringParse(t *testing.T) {
	p := DimPos{Dim: "nether", X: -1, Y: 64, Z: 12}
	got, ok := ParseDimPos(p.String())
	if !ok || got != p {
		t.Fatalf("ParseDimPos(%q)=%v,%v", p.String(), got, ok)
	}
	for _, bad := range []string{"", "@1,2,3", "nether@1,2", "nether@a,2,3"} {
		if _, ok := ParseDimPos(bad); ok {
			t.Fatalf("ParseDimPos(%q) should fail", bad)
		}
	}
}

func TestDimPosLess(t *testing.T) {
	a := DimPos{Dim: "a", X: 9}
	b := DimPos{Dim: "b", X: 0}
	if !a.Less(b) || b.Less(a) {
		t.Fatalf("dimension should order first")
	}
	c := DimPos{Dim: "a", X: 1, Y: 5}
	d := DimPos{Dim: "a", X: 1, Y: 6}
	if !c.Less(d) || d.Less(c) || c.Less(c) {
		t.Fatalf("y ordering broken")
	}
}

func TestStackHelpers(t *testing.T) {
	apple := Stack{Item: "APPLE", Count: 5}
	if apple.WithCount(0) != Empty || !apple.WithCount(-2).IsEmpty() {
		t.Fatalf("non-positive count should yield empty")
	}
	if got := apple.WithCount(3); got.Count != 3 || got.Item != "APPLE" {
		t.Fatalf("WithCount(3)=%v", got)
	}
	if !CanStack(apple, Stack{Item: "APPLE", Count: 1}) {
		t.Fatalf("same identity should stack")
	}
	if CanStack(apple, Stack{Item: "APPLE", Meta: 1, Count: 1}) {
		t.Fatalf("different meta should not stack")
	}
	if CanStack(apple, Stack{Item: "APPLE", Tag: "x", Count: 1}) {
		t.Fatalf("different tag should not stack")
	}
	if CanStack(apple, Empty) {
		t.Fatalf("empty never stacks")
	}
}

func TestMatchers(t *testing.T) {
	m := StackMatcher{Pattern: Stack{Item: "APPLE", Meta: 1}, IgnoreMeta: true}
	if !m.Match(Stack{Item: "APPLE", Meta: 7, Count: 1}) {
		t.Fatalf("meta should be ignored")
	}
	exact := StackMatcher{Pattern: Stack{Item: "APPLE", Meta: 1}}
	if exact.Match(Stack{Item: "APPLE", Meta: 7, Count: 1}) {
		t.Fatalf("exact matcher accepted other meta")
	}
	pinned := PinnedMatcher(Stack{Item: "IRON", Count: 3})
	if !pinned.Match(Stack{Item: "IRON", Count: 64}) || pinned.Match(Stack{Item: "GOLD", Count: 1}) {
		t.Fatalf("pinned matcher mismatch")
	}
}

func TestDirectionDispatch(t *testing.T) {
	cases := []struct {
		d               Direction
		link, ins, extr bool
	}{
		{DirIn, false, false, false},
		{DirOut, true, true, false},
		{DirBoth, true, true, true},
	}
	for _, c := range cases {
		if c.d.AllowsLinkTransfer() != c.link || c.d.AcceptsInsert() != c.ins || c.d.AcceptsExtract() != c.extr {
			t.Fatalf("%s: got link=%v ins=%v extr=%v", c.d, c.d.AllowsLinkTransfer(), c.d.AcceptsInsert(), c.d.AcceptsExtract())
		}
		got, ok := ParseDirection(c.d.String())
		if !ok || got != c.d {
			t.Fatalf("ParseDirection(%s)=%v,%v", c.d, got, ok)
		}
	}
	if got, ok := ParseDirection("sideways"); ok || got != DirBoth {
		t.Fatalf("unknown direction should fall back to BOTH")
	}
}
