// Package containing the tree structures used by minsgt: preprocessed species
// trees (TreeData) and the clade arena built over a forest of gene trees
// (Forest)
package graphs

import (
	"fmt"

	"github.com/evolbioinfo/gotree/tree"
)

// Expanded tree struct containing necessary preprocessed data
type TreeData struct {
	tree.Tree
	Children  [][]*tree.Node // Children for each node
	IdToNodes []*tree.Node   // Mapping between id and node pointer
	Depths    []int          // Distance from all nodes to the root
	lca       [][]int        // LCA for each pair of node id
	tipNames  map[string]int // Tip name to node id map
}

// Preprocess tree data and makes TreeData struct. The tree must be rooted.
func MakeTreeData(tre *tree.Tree) *TreeData {
	children := children(tre)
	return &TreeData{Tree: *tre,
		Children:  children,
		lca:       calcLCAs(tre, children),
		IdToNodes: mapIdToNodes(tre),
		Depths:    calcDepths(tre),
		tipNames:  mapTipNames(tre),
	}
}

// Create mapping from id to node pointer
func mapIdToNodes(tre *tree.Tree) []*tree.Node {
	idMap := make([]*tree.Node, len(tre.Nodes()))
	tre.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		idMap[cur.Id()] = cur
		return true
	})
	return idMap
}

// Calculate children for each node for quick access (as gotree's Tree only
// stores neighbors)
func children(tre *tree.Tree) [][]*tree.Node {
	nNodes := len(tre.Nodes())
	children := make([][]*tree.Node, nNodes)
	tre.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		if cur.Tip() {
			children[cur.Id()] = []*tree.Node{}
		} else {
			children[cur.Id()] = GetChildren(cur)
		}
		return true
	})
	return children
}

// Get children of node
func GetChildren(node *tree.Node) []*tree.Node {
	children := make([]*tree.Node, 0)
	p, err := node.Parent()
	if err != nil && err.Error() == "The node has more than one parent" {
		panic(err)
	}
	for _, u := range node.Neigh() {
		if u != p {
			children = append(children, u)
		}
	}
	return children
}

// Calculates the LCA for every pair of nodes
func calcLCAs(tre *tree.Tree, children [][]*tree.Node) [][]int {
	nNodes := len(tre.Nodes())
	lca, below := make([][]int, nNodes), make([][]bool, nNodes) // below[i][j] = true means node j is below node i
	for i := range nNodes {
		lca[i] = make([]int, nNodes)
		below[i] = make([]bool, nNodes)
	}
	tre.PostOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		below[cur.Id()][cur.Id()] = true
		lca[cur.Id()][cur.Id()] = cur.Id()
		if !cur.Tip() {
			for i := range nNodes {
				for _, child := range children[cur.Id()] {
					below[cur.Id()][i] = below[cur.Id()][i] || below[child.Id()][i]
				}
			}
			for c1 := range children[cur.Id()] {
				for c2 := c1 + 1; c2 < len(children[cur.Id()]); c2++ {
					childId1 := children[cur.Id()][c1].Id()
					childId2 := children[cur.Id()][c2].Id()
					for i := range nNodes {
						for j := range nNodes {
							if below[childId1][i] && below[childId2][j] ||
								i == cur.Id() && below[childId2][j] ||
								i == cur.Id() && below[childId1][j] {
								lca[i][j] = cur.Id()
								lca[j][i] = cur.Id()
							}
						}
					}
				}
			}
		}
		return true
	})
	return lca
}

// Calculate depths for all nodes in tree (slice index = node id)
func calcDepths(tre *tree.Tree) []int {
	depths := make([]int, len(tre.Nodes()))
	tre.PreOrder(func(cur, prev *tree.Node, e *tree.Edge) (keep bool) {
		if cur != tre.Root() {
			depths[cur.Id()] = depths[prev.Id()] + 1
		}
		return true
	})
	return depths
}

func mapTipNames(tre *tree.Tree) map[string]int {
	tips := tre.Tips()
	names := make(map[string]int, len(tips))
	for _, t := range tips {
		names[t.Name()] = t.Id()
	}
	return names
}

// Returns the node id of the tip with the given name
func (td *TreeData) TipID(name string) (int, bool) {
	id, ok := td.tipNames[name]
	return id, ok
}

// Takes in the node ids of two nodes and returns the id of the LCA
func (td *TreeData) LCA(n1ID, n2ID int) int {
	return td.lca[n1ID][n2ID]
}

// n2 is under n1
func (td *TreeData) Under(n1ID, n2ID int) bool {
	return td.LCA(n1ID, n2ID) == n1ID && n1ID != n2ID
}

// Number of edges between n1 and its descendant n2; panics if n2 is not
// below (or equal to) n1
func (td *TreeData) Dist(n1ID, n2ID int) int {
	if n1ID != n2ID && !td.Under(n1ID, n2ID) {
		panic(fmt.Sprintf("node %d is not below node %d", n2ID, n1ID))
	}
	return td.Depths[n2ID] - td.Depths[n1ID]
}

// Returns true if the node belongs to this tree
func (td *TreeData) Owns(n *tree.Node) bool {
	return n != nil && n.Id() >= 0 && n.Id() < len(td.IdToNodes) && td.IdToNodes[n.Id()] == n
}
