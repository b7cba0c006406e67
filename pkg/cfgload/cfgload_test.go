package cfgload

import (
	"context"
	"testing"

	"github.com/oldnordic/mirage/internal/errors"
	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

// fakeAdapter is a minimal in-memory store.Adapter for loader tests.
type fakeAdapter struct {
	functions map[int64]*cfgmodel.Function
	byName    map[string]int64
	blocks    map[int64][]store.RawBlock
	edges     map[int64][]store.RawEdge
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		functions: map[int64]*cfgmodel.Function{},
		byName:    map[string]int64{},
		blocks:    map[int64][]store.RawBlock{},
		edges:     map[int64][]store.RawEdge{},
	}
}

func (f *fakeAdapter) SchemaVersion(ctx context.Context) (int, error) { return 1, nil }

func (f *fakeAdapter) ResolveFunction(ctx context.Context, ref store.FunctionRef) (*cfgmodel.Function, error) {
	id := ref.ID
	if ref.Name != "" {
		var ok bool
		id, ok = f.byName[ref.Name]
		if !ok {
			return nil, nil
		}
	}
	fn, ok := f.functions[id]
	if !ok {
		return nil, nil
	}
	return fn, nil
}

func (f *fakeAdapter) Blocks(ctx context.Context, functionID int64) ([]store.RawBlock, error) {
	return f.blocks[functionID], nil
}
func (f *fakeAdapter) Edges(ctx context.Context, functionID int64) ([]store.RawEdge, error) {
	return f.edges[functionID], nil
}
func (f *fakeAdapter) FunctionHash(ctx context.Context, functionID int64) (cfgmodel.FunctionHash, bool, error) {
	return cfgmodel.FunctionHash{}, false, nil
}
func (f *fakeAdapter) SetFunctionHash(ctx context.Context, functionID int64, hash cfgmodel.FunctionHash) error {
	return nil
}
func (f *fakeAdapter) CachedPaths(ctx context.Context, functionID int64) ([]store.CachedPath, error) {
	return nil, nil
}
func (f *fakeAdapter) ReplacePaths(ctx context.Context, functionID int64, paths []store.CachedPath, fnHash cfgmodel.FunctionHash) error {
	return nil
}
func (f *fakeAdapter) InvalidatePaths(ctx context.Context, functionID int64) error { return nil }
func (f *fakeAdapter) CallEdges(ctx context.Context, functionID int64, direction string) ([]store.CallEdge, error) {
	return nil, nil
}
func (f *fakeAdapter) HasCallGraph(ctx context.Context) (bool, error) { return false, nil }
func (f *fakeAdapter) AllFunctions(ctx context.Context) ([]cfgmodel.Function, error) {
	return nil, nil
}
func (f *fakeAdapter) FindPathOwner(ctx context.Context, fingerprint cfgmodel.PathFingerprint) (int64, bool, error) {
	return 0, false, nil
}
func (f *fakeAdapter) Stats(ctx context.Context) (store.Stats, error) { return store.Stats{}, nil }
func (f *fakeAdapter) Close() error                                  { return nil }

func (f *fakeAdapter) addFunction(id int64, name string) {
	f.functions[id] = &cfgmodel.Function{ID: id, Name: name, FilePath: "pkg/file.go"}
	f.byName[name] = id
}

func TestLoadDiamondDerivesEdgesFromTerminators(t *testing.T) {
	f := newFakeAdapter()
	f.addFunction(1, "pkg.Diamond")
	f.blocks[1] = []store.RawBlock{
		{BlockID: 10, StableOrder: 0, Kind: "Entry", TerminatorJSON: `{"tag":"SwitchInt","switch_targets":[{"discriminant":1,"target":1},{"discriminant":0,"target":2}],"switch_otherwise":2}`},
		{BlockID: 11, StableOrder: 1, Kind: "Normal", TerminatorJSON: `{"tag":"Goto","goto_target":3}`},
		{BlockID: 12, StableOrder: 2, Kind: "Normal", TerminatorJSON: `{"tag":"Goto","goto_target":3}`},
		{BlockID: 13, StableOrder: 3, Kind: "Exit", TerminatorJSON: `{"tag":"Return"}`},
	}

	cfg, fn, err := Load(context.Background(), f, store.FunctionRef{Name: "pkg.Diamond"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fn.Name != "pkg.Diamond" {
		t.Fatalf("fn.Name = %q", fn.Name)
	}
	if cfg.NumBlocks() != 4 {
		t.Fatalf("NumBlocks = %d, want 4", cfg.NumBlocks())
	}
	if cfg.EntryIndex != 0 {
		t.Errorf("EntryIndex = %d, want 0", cfg.EntryIndex)
	}
	if len(cfg.ExitIndices) != 1 || cfg.ExitIndices[0] != 3 {
		t.Errorf("ExitIndices = %v, want [3]", cfg.ExitIndices)
	}
	if len(cfg.Edges) != 4 {
		t.Fatalf("Edges = %d, want 4 (2 branch + 2 fallthrough)", len(cfg.Edges))
	}
}

func TestLoadEmptyCfg(t *testing.T) {
	f := newFakeAdapter()
	f.addFunction(1, "pkg.Empty")
	_, _, err := Load(context.Background(), f, store.FunctionRef{Name: "pkg.Empty"})
	mErr, ok := err.(*errors.Error)
	if !ok || mErr.Code != errors.CodeNotIndexed {
		t.Fatalf("err = %v, want NotIndexed", err)
	}
}

func TestLoadUnknownFunctionName(t *testing.T) {
	f := newFakeAdapter()
	_, _, err := Load(context.Background(), f, store.FunctionRef{Name: "pkg.Missing"})
	mErr, ok := err.(*errors.Error)
	if !ok || mErr.Code != errors.CodeNotFound {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestLoadUnknownTerminatorFallsBackToUnreachable(t *testing.T) {
	f := newFakeAdapter()
	f.addFunction(1, "pkg.Weird")
	f.blocks[1] = []store.RawBlock{
		{BlockID: 10, StableOrder: 0, Kind: "Entry", TerminatorJSON: `{"tag":"FrobnicateJump"}`},
	}

	cfg, _, err := Load(context.Background(), f, store.FunctionRef{Name: "pkg.Weird"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Blocks[0].Terminator.Tag != cfgmodel.TermUnreachable {
		t.Errorf("Terminator.Tag = %v, want Unreachable", cfg.Blocks[0].Terminator.Tag)
	}
}

func TestLoadSimpleLoopMarksBackEdge(t *testing.T) {
	f := newFakeAdapter()
	f.addFunction(1, "pkg.Loop")
	f.blocks[1] = []store.RawBlock{
		{BlockID: 10, StableOrder: 0, Kind: "Entry", TerminatorJSON: `{"tag":"Goto","goto_target":1}`},
		{BlockID: 11, StableOrder: 1, Kind: "Normal", TerminatorJSON: `{"tag":"SwitchInt","switch_targets":[{"discriminant":1,"target":0},{"discriminant":0,"target":2}],"switch_otherwise":2}`},
		{BlockID: 12, StableOrder: 2, Kind: "Exit", TerminatorJSON: `{"tag":"Return"}`},
	}

	cfg, _, err := Load(context.Background(), f, store.FunctionRef{Name: "pkg.Loop"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	foundBack := false
	for _, e := range cfg.Edges {
		if e.From == 1 && e.To == 0 && e.IsBackEdge {
			foundBack = true
		}
	}
	if !foundBack {
		t.Errorf("expected edge 1->0 to be marked as a back edge")
	}
}
