package lifecycle

import "testing"

func TestPhase(t *testing.T) {
	defer Set(Starting)

	if Current() != Starting {
		t.Fatalf("Current() = %v, want starting", Current())
	}
	Set(Serving)
	if Current() != Serving || IsDraining() {
		t.Errorf("Current() = %v, IsDraining() = %v", Current(), IsDraining())
	}
	Set(Draining)
	if !IsDraining() || Current().String() != "shutting-down" {
		t.Errorf("Current() = %v, want shutting-down", Current())
	}
	if Phase(9).String() != "unknown" {
		t.Error("unknown phase string")
	}
}
