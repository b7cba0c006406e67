package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFileContainsCounters(t *testing.T) {
	r := New()
	r.PathsEnumerated.Add(3)
	r.CacheHits.Inc()

	dir := t.TempDir()
	path := filepath.Join(dir, "mirage.prom")
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, "mirage_paths_enumerated_total 3") {
		t.Errorf("expected paths counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "mirage_path_cache_hits_total 1") {
		t.Errorf("expected cache hits counter in output, got:\n%s", out)
	}
}
