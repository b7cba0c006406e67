package sqlstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/oldnordic/mirage/pkg/cfgmodel"
	"github.com/oldnordic/mirage/pkg/store"
)

func openTestBackend(t *testing.T) *Backend {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mirage.db")
	adapter, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { adapter.Close() })
	return adapter.(*Backend)
}

func seedFunction(t *testing.T, b *Backend, id int64, name string) {
	t.Helper()
	if _, err := b.db.Exec(`INSERT INTO functions (id, name, file_path) VALUES (?, ?, ?)`, id, name, "pkg/file.go"); err != nil {
		t.Fatalf("seed function: %v", err)
	}
}

func TestSchemaVersionSeeded(t *testing.T) {
	b := openTestBackend(t)
	v, err := b.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != store.CurrentSchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", v, store.CurrentSchemaVersion)
	}
}

func TestResolveFunctionByNameAndID(t *testing.T) {
	b := openTestBackend(t)
	seedFunction(t, b, 1, "pkg.Foo")

	fn, err := b.ResolveFunction(context.Background(), store.FunctionRef{Name: "pkg.Foo"})
	if err != nil {
		t.Fatalf("ResolveFunction by name: %v", err)
	}
	if fn == nil || fn.ID != 1 {
		t.Fatalf("ResolveFunction by name = %+v, want id 1", fn)
	}

	fn2, err := b.ResolveFunction(context.Background(), store.FunctionRef{ID: 1})
	if err != nil {
		t.Fatalf("ResolveFunction by id: %v", err)
	}
	if fn2 == nil || fn2.Name != "pkg.Foo" {
		t.Fatalf("ResolveFunction by id = %+v, want name pkg.Foo", fn2)
	}
}

func TestResolveFunctionNotFound(t *testing.T) {
	b := openTestBackend(t)
	fn, err := b.ResolveFunction(context.Background(), store.FunctionRef{Name: "missing"})
	if err != nil {
		t.Fatalf("ResolveFunction: %v", err)
	}
	if fn != nil {
		t.Errorf("expected nil function, got %+v", fn)
	}
}

func TestReplacePathsIsAtomicPerFunction(t *testing.T) {
	b := openTestBackend(t)
	seedFunction(t, b, 1, "pkg.Foo")

	ctx := context.Background()
	fnHash := cfgmodel.FunctionHash{0xAA}
	paths := []store.CachedPath{
		{Fingerprint: cfgmodel.PathFingerprint{0x01}, Kind: cfgmodel.PathNormal, Blocks: []int{0, 1, 3}, FunctionHash: fnHash},
		{Fingerprint: cfgmodel.PathFingerprint{0x02}, Kind: cfgmodel.PathError, Blocks: []int{0, 2}, FunctionHash: fnHash},
	}

	if err := b.ReplacePaths(ctx, 1, paths, fnHash); err != nil {
		t.Fatalf("ReplacePaths: %v", err)
	}

	got, err := b.CachedPaths(ctx, 1)
	if err != nil {
		t.Fatalf("CachedPaths: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("CachedPaths returned %d rows, want 2", len(got))
	}

	storedHash, ok, err := b.FunctionHash(ctx, 1)
	if err != nil || !ok {
		t.Fatalf("FunctionHash: ok=%v err=%v", ok, err)
	}
	if storedHash != fnHash {
		t.Errorf("FunctionHash = %x, want %x", storedHash, fnHash)
	}

	// Replacing again must fully clear the previous set, not merge it.
	fnHash2 := cfgmodel.FunctionHash{0xBB}
	onePath := []store.CachedPath{
		{Fingerprint: cfgmodel.PathFingerprint{0x03}, Kind: cfgmodel.PathNormal, Blocks: []int{0, 3}, FunctionHash: fnHash2},
	}
	if err := b.ReplacePaths(ctx, 1, onePath, fnHash2); err != nil {
		t.Fatalf("ReplacePaths (second): %v", err)
	}
	got2, err := b.CachedPaths(ctx, 1)
	if err != nil {
		t.Fatalf("CachedPaths (second): %v", err)
	}
	if len(got2) != 1 {
		t.Fatalf("CachedPaths after replace = %d rows, want 1", len(got2))
	}
}

func TestInvalidatePaths(t *testing.T) {
	b := openTestBackend(t)
	seedFunction(t, b, 1, "pkg.Foo")
	ctx := context.Background()

	fnHash := cfgmodel.FunctionHash{0xAA}
	paths := []store.CachedPath{
		{Fingerprint: cfgmodel.PathFingerprint{0x01}, Kind: cfgmodel.PathNormal, Blocks: []int{0, 1}, FunctionHash: fnHash},
	}
	if err := b.ReplacePaths(ctx, 1, paths, fnHash); err != nil {
		t.Fatalf("ReplacePaths: %v", err)
	}
	if err := b.InvalidatePaths(ctx, 1); err != nil {
		t.Fatalf("InvalidatePaths: %v", err)
	}
	got, err := b.CachedPaths(ctx, 1)
	if err != nil {
		t.Fatalf("CachedPaths: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("CachedPaths after invalidate = %d rows, want 0", len(got))
	}
}

func TestHasCallGraphFalseWhenEmpty(t *testing.T) {
	b := openTestBackend(t)
	has, err := b.HasCallGraph(context.Background())
	if err != nil {
		t.Fatalf("HasCallGraph: %v", err)
	}
	if has {
		t.Errorf("HasCallGraph = true on empty store, want false")
	}
}

func TestAllFunctionsOrderedByID(t *testing.T) {
	b := openTestBackend(t)
	seedFunction(t, b, 2, "pkg.B")
	seedFunction(t, b, 1, "pkg.A")

	fns, err := b.AllFunctions(context.Background())
	if err != nil {
		t.Fatalf("AllFunctions: %v", err)
	}
	if len(fns) != 2 || fns[0].ID != 1 || fns[1].ID != 2 {
		t.Errorf("AllFunctions = %+v, want [id=1, id=2]", fns)
	}
}

func TestFindPathOwnerAndStats(t *testing.T) {
	b := openTestBackend(t)
	seedFunction(t, b, 1, "pkg.Foo")
	ctx := context.Background()

	fp := cfgmodel.PathFingerprint{0x02}
	fnHash := cfgmodel.FunctionHash{0xBB}
	paths := []store.CachedPath{{Fingerprint: fp, Kind: cfgmodel.PathNormal, Blocks: []int{0, 1}, FunctionHash: fnHash}}
	if err := b.ReplacePaths(ctx, 1, paths, fnHash); err != nil {
		t.Fatalf("ReplacePaths: %v", err)
	}

	owner, ok, err := b.FindPathOwner(ctx, fp)
	if err != nil {
		t.Fatalf("FindPathOwner: %v", err)
	}
	if !ok || owner != 1 {
		t.Errorf("FindPathOwner = (%d, %v), want (1, true)", owner, ok)
	}

	stats, err := b.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Functions != 1 || stats.Paths != 1 {
		t.Errorf("Stats = %+v, want Functions=1 Paths=1", stats)
	}
}
