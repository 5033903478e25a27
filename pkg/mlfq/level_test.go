package mlfq

import "testing"

func TestLevelDemoted(t *testing.T) {
	cases := []struct {
		in   Level
		want Level
	}{
		{High, Medium},
		{Medium, Low},
		{Low, Low},
	}

	for _, tc := range cases {
		if got := tc.in.Demoted(); got != tc.want {
			t.Errorf("%s.Demoted() = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestLevelPromoted(t *testing.T) {
	cases := []struct {
		in   Level
		want Level
	}{
		{Low, Medium},
		{Medium, High},
		{High, High},
	}

	for _, tc := range cases {
		if got := tc.in.Promoted(); got != tc.want {
			t.Errorf("%s.Promoted() = %s, want %s", tc.in, got, tc.want)
		}
	}
}

func TestLevelHostPriorityDecreasesDownTheLadder(t *testing.T) {
	const top = 5

	high := High.HostPriority(top)
	medium := Medium.HostPriority(top)
	low := Low.HostPriority(top)

	if !(high > medium && medium > low) {
		t.Fatalf("expected strictly decreasing host priority, got high=%d medium=%d low=%d", high, medium, low)
	}

	if high != top {
		t.Fatalf("expected High to run at top priority %d, got %d", top, high)
	}
}

func TestLevelStringAndValid(t *testing.T) {
	for _, l := range []Level{High, Medium, Low} {
		if !l.Valid() {
			t.Errorf("expected %v to be valid", l)
		}

		if l.String() == "unknown" {
			t.Errorf("expected a named string for %v", l)
		}
	}

	if Level(99).Valid() {
		t.Fatal("expected an out-of-range level to be invalid")
	}
}
