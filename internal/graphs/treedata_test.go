package graphs

import (
	"fmt"
	"strings"
	"testing"

	"github.com/evolbioinfo/gotree/io/newick"
	"github.com/evolbioinfo/gotree/tree"
)

func TestMakeTreeData(t *testing.T) {
	testCases := []struct {
		name   string
		tre    string
		lca    map[string][][]string
		under  map[string][]string
		depths map[string]int
	}{
		{
			name: "basic",
			tre:  "((((A,B)a,C)b,D)c,F)r;",
			lca: map[string][][]string{
				"a": {
					{"A", "B"},
				},
				"b": {
					{"A", "C"},
					{"B", "C"},
				},
				"c": {
					{"A", "D"},
					{"B", "D"},
					{"C", "D"},
				},
				"r": {
					{"A", "F"},
					{"B", "F"},
					{"C", "F"},
					{"D", "F"},
				},
			},
			under: map[string][]string{
				"a": {"A", "B"},
				"b": {"A", "B", "C", "a"},
				"c": {"A", "B", "C", "D", "b"},
				"r": {"A", "B", "C", "D", "F", "c"},
			},
			depths: map[string]int{"r": 0, "F": 1, "c": 1, "b": 2, "a": 3, "A": 4},
		},
		{
			name: "balanced",
			tre:  "((A,B)x,(C,D)y)r;",
			lca: map[string][][]string{
				"x": {{"A", "B"}},
				"y": {{"C", "D"}},
				"r": {{"A", "C"}, {"B", "D"}, {"x", "D"}, {"x", "y"}},
			},
			under: map[string][]string{
				"x": {"A", "B"},
				"y": {"C", "D"},
			},
			depths: map[string]int{"r": 0, "x": 1, "D": 2},
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre, err := newick.NewParser(strings.NewReader(test.tre)).Parse()
			if err != nil {
				t.Error("invalid newick tree; test is written wrong")
			}
			if err := tre.UpdateTipIndex(); err != nil {
				t.Error(err)
			}
			treeData := MakeTreeData(tre)
			lca := treeData.lca
			nLeaves := len(lca)
			for i := range nLeaves {
				for j := range nLeaves {
					if lca[i][j] != lca[j][i] {
						t.Error("lca structure problem")
					}
				}
			}
			if b, err := lcaEqualityTester(lca, test.lca, tre); err != nil {
				t.Error(err.Error())
			} else if !b {
				t.Error("lca != expected")
			}
			for label, below := range test.under {
				node, err := getNode(label, tre)
				if err != nil {
					t.Fatal(err)
				}
				if treeData.Under(node.Id(), node.Id()) {
					t.Errorf("%s should not be under itself", label)
				}
				for _, b := range below {
					other, err := getNode(b, tre)
					if err != nil {
						t.Fatal(err)
					}
					if !treeData.Under(node.Id(), other.Id()) {
						t.Errorf("%s should be under %s", b, label)
					}
					if treeData.Under(other.Id(), node.Id()) {
						t.Errorf("%s should not be under %s", label, b)
					}
				}
			}
			for label, depth := range test.depths {
				node, err := getNode(label, tre)
				if err != nil {
					t.Fatal(err)
				}
				if treeData.Depths[node.Id()] != depth {
					t.Errorf("depth of %s is %d, expected %d", label, treeData.Depths[node.Id()], depth)
				}
				if id, ok := treeData.TipID(label); node.Tip() && (!ok || id != node.Id()) {
					t.Errorf("tip %s not found by name", label)
				}
				if !treeData.Owns(node) {
					t.Errorf("node %s should belong to the tree", label)
				}
			}
		})
	}
}

func lcaEqualityTester(lca [][]int, testLCA map[string][][]string, tre *tree.Tree) (bool, error) {
	for k, v := range testLCA {
		for _, pair := range v {
			if len(pair) != 2 {
				return false, fmt.Errorf("lca is not a pair; test is written wrong")
			}
			node1, err := getNode(pair[0], tre)
			if err != nil {
				return false, err
			}
			node2, err := getNode(pair[1], tre)
			if err != nil {
				return false, err
			}
			lcaNode, err := getNode(k, tre)
			if err != nil {
				return false, err
			}
			if lca[node1.Id()][node2.Id()] != lcaNode.Id() {
				return false, nil
			}
		}
	}
	return true, nil
}

func TestDist(t *testing.T) {
	testCases := []struct {
		name     string
		tre      string
		from, to string
		expected int
	}{
		{name: "self", tre: "((A,B)a,C)r;", from: "a", to: "a", expected: 0},
		{name: "child", tre: "((A,B)a,C)r;", from: "r", to: "a", expected: 1},
		{name: "leaf", tre: "(((A,B)a,C)b,D)r;", from: "r", to: "A", expected: 3},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			tre, err := newick.NewParser(strings.NewReader(test.tre)).Parse()
			if err != nil {
				t.Fatal("invalid newick tree; test is written wrong")
			}
			if err := tre.UpdateTipIndex(); err != nil {
				t.Fatal(err)
			}
			td := MakeTreeData(tre)
			from, _ := getNode(test.from, tre)
			to, _ := getNode(test.to, tre)
			if d := td.Dist(from.Id(), to.Id()); d != test.expected {
				t.Errorf("dist %s -> %s = %d, expected %d", test.from, test.to, d, test.expected)
			}
		})
	}
}

func TestDistPanicsOutsideSubtree(t *testing.T) {
	tre, err := newick.NewParser(strings.NewReader("((A,B)a,C)r;")).Parse()
	if err != nil {
		t.Fatal("invalid newick tree; test is written wrong")
	}
	if err := tre.UpdateTipIndex(); err != nil {
		t.Fatal(err)
	}
	td := MakeTreeData(tre)
	a, _ := getNode("a", tre)
	c, _ := getNode("C", tre)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	td.Dist(a.Id(), c.Id())
}

func getNode(label string, tre *tree.Tree) (*tree.Node, error) {
	nodeList, err := tre.SelectNodes(label)
	if err != nil {
		panic(err)
	}
	if len(nodeList) != 1 {
		return nil, fmt.Errorf("more or less than one internal node with the required label; test is written wrong")
	}
	return nodeList[0], nil
}
