package errors

import "testing"

func TestExitCode(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindUser, 1},
		{KindData, 2},
		{KindTransient, 2},
		{KindInternal, 3},
	}

	for _, c := range cases {
		if got := ExitCode(c.kind); got != c.want {
			t.Errorf("ExitCode(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestErrorFormatsWithDetail(t *testing.T) {
	err := ErrNotIndexed("pkg.Foo")
	if err.Kind != KindData {
		t.Errorf("ErrNotIndexed Kind = %s, want %s", err.Kind, KindData)
	}
	if err.Code != CodeNotIndexed {
		t.Errorf("ErrNotIndexed Code = %s, want %s", err.Code, CodeNotIndexed)
	}
	got := err.Error()
	want := "Function is not indexed: No CFG blocks exist for \"pkg.Foo\""
	if got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestUnwrap(t *testing.T) {
	cause := NewInternalError("boom", "", "", nil)
	wrapped := NewUserError("Wrapped", "outer", "", "", cause)
	if wrapped.Unwrap() != cause {
		t.Errorf("Unwrap() did not return the wrapped cause")
	}
}
