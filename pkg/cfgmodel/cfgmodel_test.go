package cfgmodel

import "testing"

// diamondCFG builds:
//
//	0 (Entry, SwitchInt true/false) -> 1, 2
//	1 -> 3
//	2 -> 3
//	3 (Exit, Return)
func diamondCFG() *CFG {
	c := &CFG{
		FunctionID:   1,
		FunctionName: "diamond",
		Blocks: []BasicBlock{
			{LocalIndex: 0, Kind: BlockEntry, Terminator: Terminator{Tag: TermSwitchInt}},
			{LocalIndex: 1, Kind: BlockNormal, Terminator: Terminator{Tag: TermGoto, GotoTarget: 3}},
			{LocalIndex: 2, Kind: BlockNormal, Terminator: Terminator{Tag: TermGoto, GotoTarget: 3}},
			{LocalIndex: 3, Kind: BlockExit, Terminator: Terminator{Tag: TermReturn}},
		},
		Edges: []Edge{
			{From: 0, To: 1, Kind: EdgeTrueBranch},
			{From: 0, To: 2, Kind: EdgeFalseBranch},
			{From: 1, To: 3, Kind: EdgeFallthrough},
			{From: 2, To: 3, Kind: EdgeFallthrough},
		},
		EntryIndex:  0,
		ExitIndices: []int{3},
	}
	c.Build()
	return c
}

func TestCFGSuccessorsPredecessors(t *testing.T) {
	c := diamondCFG()

	if got := c.Successors(0); len(got) != 2 {
		t.Fatalf("Successors(0) = %v, want 2 entries", got)
	}
	if got := c.Predecessors(3); len(got) != 2 {
		t.Fatalf("Predecessors(3) = %v, want 2 entries", got)
	}
	if !c.IsExit(3) {
		t.Errorf("block 3 should be an exit block")
	}
	if c.IsExit(0) {
		t.Errorf("block 0 should not be an exit block")
	}
}

func TestExitBlocksHaveNoOutgoingEdges(t *testing.T) {
	c := diamondCFG()
	for _, exitIdx := range c.ExitIndices {
		if len(c.Out[exitIdx]) != 0 {
			t.Errorf("exit block %d has %d outgoing edges, want 0", exitIdx, len(c.Out[exitIdx]))
		}
	}
}

func TestPathCanonicalEncodingIsLengthPrefixed(t *testing.T) {
	p1 := &Path{FunctionID: 1, Blocks: []int{0, 1, 3}}
	p2 := &Path{FunctionID: 1, Blocks: []int{0, 1}}

	e1 := p1.CanonicalEncoding()
	e2 := p2.CanonicalEncoding()

	if len(e1) != 16+8*3 {
		t.Fatalf("unexpected encoding length %d", len(e1))
	}

	// p2's encoding must not be a prefix match that collides with any
	// prefix of p1's encoding once the length field is included.
	matched := true
	for i := range e2 {
		if e1[i] != e2[i] {
			matched = false
			break
		}
	}
	if matched {
		t.Errorf("length field did not distinguish different-length paths sharing a prefix")
	}
}

func TestDominatorTreeReflexiveAndChain(t *testing.T) {
	// 0 -> 1 -> 2, idom(1)=0, idom(2)=1, idom(0)=NoDominator
	dt := &DominatorTree{Idom: []int{NoDominator, 0, 1}}

	if !dt.IsDominatedBy(2, 0) {
		t.Errorf("block 0 should dominate block 2 transitively")
	}
	if !dt.IsDominatedBy(1, 1) {
		t.Errorf("dominance must be reflexive")
	}
	if dt.IsDominatedBy(0, 2) {
		t.Errorf("block 2 must not dominate block 0")
	}

	kids := dt.Children(0)
	if len(kids) != 1 || kids[0] != 1 {
		t.Errorf("Children(0) = %v, want [1]", kids)
	}
}

func TestNaturalLoopShape(t *testing.T) {
	// header 1, body {1,2}, back edge from 2 to 1
	loop := NaturalLoop{Header: 1, BackEdges: []int{2}, Body: []int{1, 2}, NestingLevel: 1}
	if loop.Header != 1 {
		t.Errorf("Header = %d, want 1", loop.Header)
	}
	if len(loop.Body) != 2 {
		t.Errorf("Body = %v, want 2 entries", loop.Body)
	}
}
