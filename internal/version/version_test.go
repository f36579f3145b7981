package version

import "testing"

func TestCurrentFillsBlanks(t *testing.T) {
	prevV, prevC := Version, Commit
	t.Cleanup(func() { Version, Commit = prevV, prevC })

	Version, Commit = "  ", ""
	got := Current()
	if got.Version != "dev" || got.Commit != "unknown" {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	Version, Commit = " v1.2.0 ", "abc123"
	if got := Current(); got.Version != "v1.2.0" || got.Commit != "abc123" {
		t.Fatalf("unexpected info: %+v", got)
	}
}
