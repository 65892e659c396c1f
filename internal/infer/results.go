package infer

// partial solution of a subproblem; the tree itself is only built on
// traceback
type candidate struct {
	cost    int   // DL cost of the subtree
	species int   // species node id the subtree root maps to
	trace   trace // how to build the subtree
}

// Minimum cost candidates of a subproblem, at most limit of them, kept in the
// order they were found
type resultSet struct {
	limit int
	cands []candidate
}

func newResultSet(limit int) *resultSet {
	return &resultSet{limit: limit, cands: make([]candidate, 0, min(limit, 4))}
}

// Returns true if a candidate of the given cost would be kept
func (rs *resultSet) accepts(cost int) bool {
	if len(rs.cands) == 0 || cost < rs.cands[0].cost {
		return true
	}
	return cost == rs.cands[0].cost && len(rs.cands) < rs.limit
}

// Adds candidate; returns false if it was not kept
func (rs *resultSet) add(c candidate) bool {
	if !rs.accepts(c.cost) {
		return false
	}
	if len(rs.cands) != 0 && c.cost < rs.cands[0].cost {
		rs.cands = rs.cands[:0]
	}
	rs.cands = append(rs.cands, c)
	return true
}

func (rs *resultSet) candidates() []candidate {
	if len(rs.cands) == 0 {
		return nil
	}
	return rs.cands
}
