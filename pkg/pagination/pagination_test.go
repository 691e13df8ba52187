package pagination

import "testing"

func TestNormalizeSize(t *testing.T) {
	cases := map[int]int{0: DefaultSize, -3: DefaultSize, 10: 10, MaxSize + 1: MaxSize}
	for in, want := range cases {
		if got := NormalizeSize(in); got != want {
			t.Fatalf("NormalizeSize(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestParse(t *testing.T) {
	params, err := Parse("2", "10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 2 || params.Size != 10 || params.Offset() != 20 {
		t.Fatalf("unexpected params %+v offset=%d", params, params.Offset())
	}

	params, err = Parse("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.Page != 0 || params.Size != DefaultSize {
		t.Fatalf("expected defaults, got %+v", params)
	}

	if _, err := Parse("-1", ""); err == nil {
		t.Fatalf("expected error for negative page")
	}
	if _, err := Parse("", "abc"); err == nil {
		t.Fatalf("expected error for non-numeric size")
	}
}
