package source

import "testing"

func TestBefore(t *testing.T) {
	tests := []struct {
		p, q Pos
		want bool
	}{
		{Pos{Line: 1, Col: 1, Off: 0}, Pos{Line: 1, Col: 3, Off: 2}, true},
		{Pos{Line: 1, Col: 3, Off: 2}, Pos{Line: 1, Col: 1, Off: 0}, false},
		// positions without byte offsets still order by line and column
		{Pos{Line: 1, Col: 3}, Pos{Line: 2, Col: 1}, true},
		{Pos{Line: 2, Col: 1}, Pos{Line: 2, Col: 5}, true},
		{Pos{Line: 2, Col: 5}, Pos{Line: 2, Col: 5}, false},
	}
	for _, tt := range tests {
		if got := tt.p.Before(tt.q); got != tt.want {
			t.Errorf("%s before %s = %v, want %v", tt.p, tt.q, got, tt.want)
		}
	}
}

func TestString(t *testing.T) {
	if got := (Pos{Line: 3, Col: 14, Off: 40}).String(); got != "3:14" {
		t.Fatalf("got %q", got)
	}
}

func TestIsValid(t *testing.T) {
	if (Pos{}).IsValid() {
		t.Fatal("zero position reported valid")
	}
	if !(Pos{Line: 1, Col: 1}).IsValid() {
		t.Fatal("1:1 reported invalid")
	}
}
