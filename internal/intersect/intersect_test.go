package intersect

import (
	"strings"
	"testing"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"

	gr "github.com/jsdoublel/minsgt/internal/graphs"
)

func makeForest(t *testing.T, nwks ...string) *gr.Forest {
	t.Helper()
	trees := make([]*tree.Tree, len(nwks))
	for i, nwk := range nwks {
		tre, err := newick.NewParser(strings.NewReader(nwk)).Parse()
		if err != nil {
			t.Fatal("invalid newick tree; test is written wrong")
		}
		trees[i] = tre
	}
	f, err := gr.NewForest(trees)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func ids(t *testing.T, f *gr.Forest, labels ...string) []gr.CladeID {
	t.Helper()
	result := make([]gr.CladeID, len(labels))
	for i, l := range labels {
		id, ok := f.ByLabel(l)
		if !ok {
			t.Fatalf("no clade %s; test is written wrong", l)
		}
		result[i] = id
	}
	return result
}

func TestComputeAllIntersections(t *testing.T) {
	f := makeForest(t, "((a,b)x,c)y;", "(d,e)z;", "(b,d)w;")
	testCases := []struct {
		l1, l2   string
		expected bool
	}{
		{"x", "y", true},
		{"x", "c", false},
		{"a", "x", true},
		{"y", "z", false},
		{"w", "y", true},
		{"w", "z", true},
		{"w", "x", true},
		{"w", "a", false},
		{"c", "c", true},
		{"e", "w", false},
	}
	for _, nprocs := range []int{1, 4} {
		ix := New(f)
		if err := ix.ComputeAllIntersections(f.Roots, nprocs); err != nil {
			t.Fatal(err)
		}
		for _, test := range testCases {
			if got := ix.Intersect(test.l1, test.l2); got != test.expected {
				t.Errorf("nprocs %d: Intersect(%s, %s) = %t, expected %t", nprocs, test.l1, test.l2, got, test.expected)
			}
			if ix.Intersect(test.l1, test.l2) != ix.Intersect(test.l2, test.l1) {
				t.Errorf("Intersect(%s, %s) is not symmetric", test.l1, test.l2)
			}
		}
	}
}

func TestComputeIntersectionsSoundness(t *testing.T) {
	f := makeForest(t, "(((a,b)x,c)y,d)r;", "((a,e)u,(c,f)v)s;")
	ix := New(f)
	ix.ComputeIntersections(f.Roots[0], f.Roots[1])
	for a := range f.Descendants(f.Roots[0]) {
		for b := range f.Descendants(f.Roots[1]) {
			shared := f.Clade(a).Leaves.IntersectionCardinality(f.Clade(b).Leaves) > 0
			if ix.IntersectIDs(a, b) != shared {
				t.Errorf("%s, %s: recorded %t, share leaves %t",
					f.Clade(a).Label, f.Clade(b).Label, ix.IntersectIDs(a, b), shared)
			}
		}
	}
}

func TestAddIntersection(t *testing.T) {
	f := makeForest(t, "(a,b)x;", "(c,d)y;")
	ix := New(f)
	if ix.Intersect("x", "y") {
		t.Error("empty index should not report intersections")
	}
	ix.AddIntersection("y", "x")
	ix.AddIntersection("x", "y")
	if !ix.Intersect("x", "y") || !ix.Intersect("y", "x") {
		t.Error("added intersection not found")
	}
	if ix.Len() != 1 {
		t.Errorf("%d pairs recorded, expected 1", ix.Len())
	}
	ix.AddIntersection("x", "nope")
	if ix.Len() != 1 || ix.Intersect("x", "nope") {
		t.Error("unknown labels should be ignored")
	}
}

func TestIntersectAny(t *testing.T) {
	f := makeForest(t, "(a,b)x;", "(c,d)y;", "(b,e)z;")
	ix := New(f)
	if err := ix.ComputeAllIntersections(f.Roots, 2); err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		name     string
		trees    []string
		expected bool
	}{
		{name: "disjoint", trees: []string{"x", "y"}, expected: false},
		{name: "shared leaf", trees: []string{"x", "y", "z"}, expected: true},
		{name: "single", trees: []string{"x"}, expected: false},
		{name: "empty", trees: []string{}, expected: false},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			if got := ix.IntersectAny(ids(t, f, test.trees...)); got != test.expected {
				t.Errorf("IntersectAny(%v) = %t", test.trees, got)
			}
		})
	}
}

func TestIsPartitionIntersecting(t *testing.T) {
	f := makeForest(t, "((a,b)x,c)y;", "(d,e)z;", "(b,d)w;")
	ix := New(f)
	if err := ix.ComputeAllIntersections(f.Roots, 1); err != nil {
		t.Fatal(err)
	}
	testCases := []struct {
		name        string
		left, right []string
		expected    bool
	}{
		{name: "disjoint", left: []string{"y"}, right: []string{"z"}, expected: false},
		{name: "split leaf", left: []string{"x", "z"}, right: []string{"w"}, expected: true},
		{name: "cut clades", left: []string{"a", "d"}, right: []string{"b", "e", "c"}, expected: false},
		{name: "empty side", left: []string{}, right: []string{"w"}, expected: false},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			left, right := ids(t, f, test.left...), ids(t, f, test.right...)
			if got := ix.IsPartitionIntersecting(left, right); got != test.expected {
				t.Errorf("IsPartitionIntersecting(%v, %v) = %t", test.left, test.right, got)
			}
			if got := ix.IsPartitionIntersecting(right, left); got != test.expected {
				t.Errorf("IsPartitionIntersecting(%v, %v) = %t", test.right, test.left, got)
			}
		})
	}
}
