package pathengine

import (
	"context"
	"testing"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

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

func TestEnumerateDiamondYieldsTwoPaths(t *testing.T) {
	c := diamondCFG()
	res := Enumerate(c, DefaultLimits(), map[int]bool{0: true, 1: true, 2: true, 3: true})
	if len(res.Paths) != 2 {
		t.Fatalf("Enumerate = %d paths, want 2", len(res.Paths))
	}
	if res.BoundedHit {
		t.Errorf("BoundedHit = true, want false")
	}
	// Deterministic order: block 1 (true branch, lower target) before block 2.
	if res.Paths[0].Blocks[1] != 1 || res.Paths[1].Blocks[1] != 2 {
		t.Errorf("path order = %v / %v, want ascending target order", res.Paths[0].Blocks, res.Paths[1].Blocks)
	}
}

func TestFingerprintDiffersByFunctionID(t *testing.T) {
	p1 := &cfgmodel.Path{FunctionID: 1, Blocks: []int{0, 1, 3}}
	p2 := &cfgmodel.Path{FunctionID: 2, Blocks: []int{0, 1, 3}}
	if Fingerprint(p1) == Fingerprint(p2) {
		t.Errorf("fingerprints of identical block sequences for different functions must differ")
	}
}

func TestFingerprintStableAcrossCalls(t *testing.T) {
	p := &cfgmodel.Path{FunctionID: 1, Blocks: []int{0, 1, 3}}
	if Fingerprint(p) != Fingerprint(p) {
		t.Errorf("Fingerprint must be deterministic")
	}
}

func TestFunctionHashStableUnlessShapeChanges(t *testing.T) {
	c1 := diamondCFG()
	c2 := diamondCFG()
	if FunctionHash(c1) != FunctionHash(c2) {
		t.Errorf("FunctionHash differs for structurally identical CFGs")
	}

	c3 := diamondCFG()
	c3.Blocks[1].Terminator.GotoTarget = 2 // mutate shape
	c3.Edges[2].To = 2
	c3.Build()
	if FunctionHash(c1) == FunctionHash(c3) {
		t.Errorf("FunctionHash did not change after a structural edit")
	}
}

func TestClassifyDegenerateSingleBlock(t *testing.T) {
	c := diamondCFG()
	kind := Classify(c, []int{3}, map[int]bool{0: true, 1: true, 2: true, 3: true})
	if kind != cfgmodel.PathDegenerate {
		t.Errorf("Classify([3]) = %v, want Degenerate", kind)
	}
}

func TestClassifyNormalThroughBranch(t *testing.T) {
	c := diamondCFG()
	kind := Classify(c, []int{0, 1, 3}, map[int]bool{0: true, 1: true, 2: true, 3: true})
	if kind != cfgmodel.PathNormal {
		t.Errorf("Classify = %v, want Normal", kind)
	}
}

// --- cache tests using an in-memory fake store.Adapter ---

type fakeAdapter struct {
	functions map[int64]*cfgmodel.Function
	paths     map[int64][]store.CachedPath
	hashes    map[int64]cfgmodel.FunctionHash
	replaceCalls int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		functions: map[int64]*cfgmodel.Function{},
		paths:     map[int64][]store.CachedPath{},
		hashes:    map[int64]cfgmodel.FunctionHash{},
	}
}

func (f *fakeAdapter) SchemaVersion(ctx context.Context) (int, error) { return 1, nil }
func (f *fakeAdapter) ResolveFunction(ctx context.Context, ref store.FunctionRef) (*cfgmodel.Function, error) {
	return f.functions[ref.ID], nil
}
func (f *fakeAdapter) Blocks(ctx context.Context, functionID int64) ([]store.RawBlock, error) {
	return nil, nil
}
func (f *fakeAdapter) Edges(ctx context.Context, functionID int64) ([]store.RawEdge, error) {
	return nil, nil
}
func (f *fakeAdapter) FunctionHash(ctx context.Context, functionID int64) (cfgmodel.FunctionHash, bool, error) {
	h, ok := f.hashes[functionID]
	return h, ok, nil
}
func (f *fakeAdapter) SetFunctionHash(ctx context.Context, functionID int64, hash cfgmodel.FunctionHash) error {
	f.hashes[functionID] = hash
	return nil
}
func (f *fakeAdapter) CachedPaths(ctx context.Context, functionID int64) ([]store.CachedPath, error) {
	return f.paths[functionID], nil
}
func (f *fakeAdapter) ReplacePaths(ctx context.Context, functionID int64, paths []store.CachedPath, fnHash cfgmodel.FunctionHash) error {
	f.replaceCalls++
	f.paths[functionID] = paths
	f.hashes[functionID] = fnHash
	return nil
}
func (f *fakeAdapter) InvalidatePaths(ctx context.Context, functionID int64) error {
	delete(f.paths, functionID)
	return nil
}
func (f *fakeAdapter) CallEdges(ctx context.Context, functionID int64, direction string) ([]store.CallEdge, error) {
	return nil, nil
}
func (f *fakeAdapter) HasCallGraph(ctx context.Context) (bool, error) { return false, nil }
func (f *fakeAdapter) AllFunctions(ctx context.Context) ([]cfgmodel.Function, error) {
	out := make([]cfgmodel.Function, 0, len(f.functions))
	for _, fn := range f.functions {
		out = append(out, *fn)
	}
	return out, nil
}
func (f *fakeAdapter) FindPathOwner(ctx context.Context, fingerprint cfgmodel.PathFingerprint) (int64, bool, error) {
	for fid, paths := range f.paths {
		for _, p := range paths {
			if p.Fingerprint == fingerprint {
				return fid, true, nil
			}
		}
	}
	return 0, false, nil
}
func (f *fakeAdapter) Stats(ctx context.Context) (store.Stats, error) {
	total := 0
	for _, p := range f.paths {
		total += len(p)
	}
	return store.Stats{Functions: len(f.functions), Paths: total}, nil
}
func (f *fakeAdapter) Close() error { return nil }

func TestPathsForCacheMissThenHit(t *testing.T) {
	c := diamondCFG()
	adapter := newFakeAdapter()
	ctx := context.Background()

	res1, err := PathsFor(ctx, adapter, c, DefaultLimits())
	if err != nil {
		t.Fatalf("PathsFor (miss): %v", err)
	}
	if res1.FromCache {
		t.Errorf("first call should be a cache miss")
	}
	if adapter.replaceCalls != 1 {
		t.Errorf("ReplacePaths called %d times, want 1", adapter.replaceCalls)
	}

	res2, err := PathsFor(ctx, adapter, c, DefaultLimits())
	if err != nil {
		t.Fatalf("PathsFor (hit): %v", err)
	}
	if !res2.FromCache {
		t.Errorf("second call should be served from cache")
	}
	if adapter.replaceCalls != 1 {
		t.Errorf("ReplacePaths called again on a cache hit: %d calls", adapter.replaceCalls)
	}
	if len(res2.Paths) != len(res1.Paths) {
		t.Errorf("cached paths = %d, want %d", len(res2.Paths), len(res1.Paths))
	}
}

func TestPathsForInvalidatedOnShapeChange(t *testing.T) {
	c := diamondCFG()
	adapter := newFakeAdapter()
	ctx := context.Background()

	if _, err := PathsFor(ctx, adapter, c, DefaultLimits()); err != nil {
		t.Fatalf("PathsFor (initial): %v", err)
	}

	c.Blocks[1].Terminator.GotoTarget = 2
	c.Edges[2].To = 2
	c.Build()

	if _, err := PathsFor(ctx, adapter, c, DefaultLimits()); err != nil {
		t.Fatalf("PathsFor (after change): %v", err)
	}
	if adapter.replaceCalls != 2 {
		t.Errorf("ReplacePaths called %d times after a shape change, want 2", adapter.replaceCalls)
	}
}

func TestVerifyDetectsStaleFingerprint(t *testing.T) {
	c := diamondCFG()
	adapter := newFakeAdapter()
	ctx := context.Background()

	res, err := PathsFor(ctx, adapter, c, DefaultLimits())
	if err != nil {
		t.Fatalf("PathsFor: %v", err)
	}
	fp := Fingerprint(&res.Paths[0])

	vr, err := Verify(ctx, adapter, c, fp)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !vr.Valid {
		t.Errorf("Verify = invalid (%s), want valid", vr.Reason)
	}

	// Mutate the CFG without re-caching: the stored function hash is
	// now stale, so Verify must report the path invalid.
	c.Blocks[1].Terminator.GotoTarget = 2
	c.Edges[2].To = 2
	c.Build()

	vr2, err := Verify(ctx, adapter, c, fp)
	if err != nil {
		t.Fatalf("Verify (after mutation): %v", err)
	}
	if vr2.Valid {
		t.Errorf("Verify should fail after the CFG changes underneath a cached fingerprint")
	}
}
