package version

import "testing"

func TestString(t *testing.T) {
	old := Version
	Version = "v1.2.3"
	t.Cleanup(func() { Version = old })

	if got, want := String(), "tabfy v1.2.3 (commit unknown, built unknown)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
