package analysis

import (
	"testing"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
)

// diamond: 0 -(true)-> 1 -> 3 (exit)
//          0 -(false)-> 2 -> 3
func diamondCFG() *cfgmodel.CFG {
	c := &cfgmodel.CFG{
		FunctionID: 1,
		Blocks: []cfgmodel.BasicBlock{
			{LocalIndex: 0, Kind: cfgmodel.BlockEntry, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermSwitchInt}},
			{LocalIndex: 1, Kind: cfgmodel.BlockNormal, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: 3}},
			{LocalIndex: 2, Kind: cfgmodel.BlockNormal, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: 3}},
			{LocalIndex: 3, Kind: cfgmodel.BlockExit, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermReturn}},
		},
		Edges: []cfgmodel.Edge{
			{From: 0, To: 1, Kind: cfgmodel.EdgeTrueBranch},
			{From: 0, To: 2, Kind: cfgmodel.EdgeFalseBranch},
			{From: 1, To: 3, Kind: cfgmodel.EdgeFallthrough},
			{From: 2, To: 3, Kind: cfgmodel.EdgeFallthrough},
		},
		EntryIndex:  0,
		ExitIndices: []int{3},
	}
	c.Build()
	return c
}

// simpleLoop: 0 -> 1 -> 2 (loop back to 1) ; 1 -> 3 (exit)
func simpleLoopCFG() *cfgmodel.CFG {
	c := &cfgmodel.CFG{
		FunctionID: 1,
		Blocks: []cfgmodel.BasicBlock{
			{LocalIndex: 0, Kind: cfgmodel.BlockEntry, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: 1}},
			{LocalIndex: 1, Kind: cfgmodel.BlockNormal, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermSwitchInt}},
			{LocalIndex: 2, Kind: cfgmodel.BlockNormal, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: 1}},
			{LocalIndex: 3, Kind: cfgmodel.BlockExit, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermReturn}},
		},
		Edges: []cfgmodel.Edge{
			{From: 0, To: 1, Kind: cfgmodel.EdgeFallthrough},
			{From: 1, To: 2, Kind: cfgmodel.EdgeTrueBranch},
			{From: 1, To: 3, Kind: cfgmodel.EdgeFalseBranch},
			{From: 2, To: 1, Kind: cfgmodel.EdgeLoopBack, IsBackEdge: true},
		},
		EntryIndex:  0,
		ExitIndices: []int{3},
	}
	c.Build()
	return c
}

// ifElseEarlyReturn: 0 branches; true arm (1) falls through to exit 3,
// false arm returns directly (2); no common merge other than the
// function's natural exit set since 2 is itself an exit.
func ifElseEarlyReturnCFG() *cfgmodel.CFG {
	c := &cfgmodel.CFG{
		FunctionID: 1,
		Blocks: []cfgmodel.BasicBlock{
			{LocalIndex: 0, Kind: cfgmodel.BlockEntry, Terminator: cfgmodel.Terminator{
				Tag:             cfgmodel.TermSwitchInt,
				SwitchTargets:   []cfgmodel.SwitchTarget{{Discriminant: 1, Target: 1}},
				SwitchOtherwise: 2,
			}},
			{LocalIndex: 1, Kind: cfgmodel.BlockNormal, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: 3}},
			{LocalIndex: 2, Kind: cfgmodel.BlockExit, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermReturn}},
			{LocalIndex: 3, Kind: cfgmodel.BlockExit, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermReturn}},
		},
		Edges: []cfgmodel.Edge{
			{From: 0, To: 1, Kind: cfgmodel.EdgeTrueBranch},
			{From: 0, To: 2, Kind: cfgmodel.EdgeFalseBranch},
			{From: 1, To: 3, Kind: cfgmodel.EdgeFallthrough},
		},
		EntryIndex:  0,
		ExitIndices: []int{2, 3},
	}
	c.Build()
	return c
}

// unreachableBlockCFG: block 2 has no predecessor and is not entry.
func unreachableBlockCFG() *cfgmodel.CFG {
	c := &cfgmodel.CFG{
		FunctionID: 1,
		Blocks: []cfgmodel.BasicBlock{
			{LocalIndex: 0, Kind: cfgmodel.BlockEntry, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermGoto, GotoTarget: 1}},
			{LocalIndex: 1, Kind: cfgmodel.BlockExit, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermReturn}},
			{LocalIndex: 2, Kind: cfgmodel.BlockExit, Terminator: cfgmodel.Terminator{Tag: cfgmodel.TermUnreachable}},
		},
		Edges: []cfgmodel.Edge{
			{From: 0, To: 1, Kind: cfgmodel.EdgeFallthrough},
		},
		EntryIndex:  0,
		ExitIndices: []int{1, 2},
	}
	c.Build()
	return c
}

func TestDominatorsDiamond(t *testing.T) {
	c := diamondCFG()
	dt := Dominators(c)

	if dt.Idom[0] != cfgmodel.NoDominator {
		t.Errorf("Idom[entry] = %d, want NoDominator", dt.Idom[0])
	}
	if dt.Idom[1] != 0 || dt.Idom[2] != 0 {
		t.Errorf("Idom[1]=%d Idom[2]=%d, want both 0", dt.Idom[1], dt.Idom[2])
	}
	if dt.Idom[3] != 0 {
		t.Errorf("Idom[3] = %d, want 0 (merge point dominated only by entry)", dt.Idom[3])
	}
	if !dt.IsDominatedBy(3, 0) {
		t.Errorf("entry should dominate the merge block")
	}
	if dt.IsDominatedBy(3, 1) {
		t.Errorf("block 1 must not dominate the merge block (block 2's path bypasses it)")
	}
}

func TestPostDominatorsDiamond(t *testing.T) {
	c := diamondCFG()
	pdt := PostDominators(c)

	if !pdt.IsPostDominatedBy(0, 3) {
		t.Errorf("exit block should post-dominate the entry")
	}
	if !pdt.IsPostDominatedBy(1, 3) {
		t.Errorf("exit block should post-dominate block 1")
	}
}

func TestDominanceFrontierMergeBlock(t *testing.T) {
	c := diamondCFG()
	dt := Dominators(c)
	df := DominanceFrontiers(c, dt)

	// Block 3 (merge) is in the frontier of both 1 and 2, since neither
	// strictly dominates it but both reach it.
	found1, found2 := false, false
	for _, y := range df.Frontier[1] {
		if y == 3 {
			found1 = true
		}
	}
	for _, y := range df.Frontier[2] {
		if y == 3 {
			found2 = true
		}
	}
	if !found1 || !found2 {
		t.Errorf("expected block 3 in DF(1) and DF(2); got DF(1)=%v DF(2)=%v", df.Frontier[1], df.Frontier[2])
	}
}

func TestNaturalLoopSimpleLoop(t *testing.T) {
	c := simpleLoopCFG()
	dt := Dominators(c)
	loops := NaturalLoops(c, dt)

	if len(loops) != 1 {
		t.Fatalf("NaturalLoops = %d, want 1", len(loops))
	}
	loop := loops[0]
	if loop.Header != 1 {
		t.Errorf("Header = %d, want 1", loop.Header)
	}
	wantBody := map[int]bool{1: true, 2: true}
	if len(loop.Body) != len(wantBody) {
		t.Fatalf("Body = %v, want %v", loop.Body, wantBody)
	}
	for _, b := range loop.Body {
		if !wantBody[b] {
			t.Errorf("unexpected block %d in loop body", b)
		}
	}
}

func TestPatternIfElseEarlyReturn(t *testing.T) {
	c := ifElseEarlyReturnCFG()
	pdt := PostDominators(c)
	patterns := Patterns(c, pdt)

	if len(patterns) != 1 {
		t.Fatalf("Patterns = %d, want 1", len(patterns))
	}
	p := patterns[0]
	if p.Block != 0 {
		t.Errorf("Block = %d, want 0", p.Block)
	}
	if len(p.Arms) != 2 {
		t.Errorf("Arms = %v, want 2 entries", p.Arms)
	}
}

func TestUnreachableBlockDetected(t *testing.T) {
	c := unreachableBlockCFG()
	unreach := Unreachable(c)
	if len(unreach) != 1 || unreach[0] != 2 {
		t.Errorf("Unreachable = %v, want [2]", unreach)
	}
	reach := Reachable(c)
	if len(reach) != 2 {
		t.Errorf("Reachable = %v, want 2 entries", reach)
	}
}

func TestCanReach(t *testing.T) {
	c := diamondCFG()
	if !CanReach(c, 0, 3) {
		t.Errorf("entry should reach the exit block")
	}
	if CanReach(c, 1, 2) {
		t.Errorf("block 1 should not reach sibling block 2")
	}
}
