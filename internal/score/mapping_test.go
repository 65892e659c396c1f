package score

import (
	"errors"
	"testing"

	"github.com/evolbioinfo/gotree/tree"
)

func TestMapLCA(t *testing.T) {
	td := makeTreeData(t, testSpecies)
	testCases := []struct {
		name        string
		gtree       string
		expected    map[string]string // gene node -> species node
		expectedErr error
	}{
		{
			name:  "basic",
			gtree: "((a1__A,b1__B)g1,(a2__A,c1__C)g2)g3;",
			expected: map[string]string{
				"a1__A": "A",
				"c1__C": "C",
				"g1":    "ab",
				"g2":    "r",
				"g3":    "r",
			},
		},
		{
			name:     "same species",
			gtree:    "((a1__A,a2__A)g1,b1__B)g2;",
			expected: map[string]string{"g1": "A", "g2": "ab"},
		},
		{
			name:        "unknown species",
			gtree:       "(a1__A,e1__E)g1;",
			expectedErr: ErrUnknownSpecies,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			gtree := parseTree(t, test.gtree)
			mapping, err := MapLCA(gtree, td, speciesSuffix)
			if !errors.Is(err, test.expectedErr) {
				t.Fatalf("unexpected error %v", err)
			}
			if err != nil {
				return
			}
			if err := CheckMapping(gtree, mapping, td); err != nil {
				t.Errorf("computed mapping fails check: %v", err)
			}
			for _, n := range gtree.Nodes() {
				want, ok := test.expected[n.Name()]
				if !ok {
					continue
				}
				if got := mapping[n].Name(); got != want {
					t.Errorf("%s mapped to %s, expected %s", n.Name(), got, want)
				}
			}
		})
	}
}

func TestCheckMapping(t *testing.T) {
	td := makeTreeData(t, testSpecies)
	other := makeTreeData(t, testSpecies)
	gtree := parseTree(t, "((a1__A,b1__B)g1,c1__C)g2;")
	mapping, err := MapLCA(gtree, td, speciesSuffix)
	if err != nil {
		t.Fatal(err)
	}
	if err := CheckMapping(gtree, mapping, td); err != nil {
		t.Fatalf("valid mapping rejected: %v", err)
	}
	if err := CheckMapping(gtree, mapping, other); !errors.Is(err, ErrForeignSpecies) {
		t.Errorf("mapping into another species tree accepted (%v)", err)
	}
	delete(mapping, gtree.Root())
	if err := CheckMapping(gtree, mapping, td); !errors.Is(err, ErrMissingMapping) {
		t.Errorf("incomplete mapping accepted (%v)", err)
	}
}

func TestCheckMappingAncestry(t *testing.T) {
	td := makeTreeData(t, testSpecies)
	testCases := []struct {
		name  string
		node  string // gene node to remap
		to    string // species node it is remapped to
		valid bool
	}{
		{name: "unchanged", node: "g1", to: "ab", valid: true},
		{name: "root below its children", node: "g2", to: "A"},
		{name: "root above the lca", node: "g1", to: "r"},
		{name: "leaf on internal species node", node: "a1__A", to: "ab"},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			gtree := parseTree(t, "((a1__A,b1__B)g1,c1__C)g2;")
			mapping, err := MapLCA(gtree, td, speciesSuffix)
			if err != nil {
				t.Fatal(err)
			}
			nodes, err := gtree.SelectNodes(test.node)
			if err != nil || len(nodes) != 1 {
				t.Fatalf("no gene node %s; test is written wrong", test.node)
			}
			mapping[nodes[0]] = td.IdToNodes[speciesID(t, td, test.to)]
			err = CheckMapping(gtree, mapping, td)
			switch {
			case test.valid && err != nil:
				t.Errorf("valid mapping rejected: %v", err)
			case !test.valid && !errors.Is(err, ErrInvalidMapping):
				t.Errorf("unexpected error %v (expected %v)", err, ErrInvalidMapping)
			}
		})
	}
}

func TestGeneTreeCosts(t *testing.T) {
	td := makeTreeData(t, testSpecies)
	scorer, err := NewDLScorer()
	if err != nil {
		t.Fatal(err)
	}
	gtrees := []*tree.Tree{
		parseTree(t, "((a1__A,b1__B)g1,(c1__C,d1__D)g2)g3;"),
		parseTree(t, "((a1__A,b1__B)g1,(a2__A,c1__C)g2)g3;"),
		parseTree(t, "(a1__A,a2__A)g1;"),
	}
	expected := []int{0, 4, 1}
	for _, nprocs := range []int{1, 3} {
		costs, err := GeneTreeCosts(td, gtrees, speciesSuffix, scorer, nprocs)
		if err != nil {
			t.Fatal(err)
		}
		for i := range expected {
			if costs[i] != expected[i] {
				t.Errorf("nprocs %d: gene tree %d cost %d != expected %d", nprocs, i+1, costs[i], expected[i])
			}
		}
	}
	_, err = GeneTreeCosts(td, []*tree.Tree{parseTree(t, "(a1__A,x1__X)g1;")}, speciesSuffix, scorer, 1)
	if !errors.Is(err, ErrUnknownSpecies) {
		t.Errorf("unknown species accepted (%v)", err)
	}
}
