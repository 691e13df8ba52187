package units

import "testing"

func TestCartCorrelationKeys(t *testing.T) {
	id := CartCorrelationID("7", "abc")
	if id != "CART-7-abc" {
		t.Fatalf("unexpected cart id %s", id)
	}
	if prefix := CartPrefix("7"); prefix != "CART-7-" {
		t.Fatalf("unexpected prefix %s", prefix)
	}

	user, tab, ok := ParseCartCorrelationID("CART-7-abc-def")
	if !ok || user != "7" || tab != "abc-def" {
		t.Fatalf("unexpected parse user=%q tab=%q ok=%v", user, tab, ok)
	}
	for _, bad := range []string{"ORDER-1", "CART-7", "CART--abc", "CART-7-"} {
		if _, _, ok := ParseCartCorrelationID(bad); ok {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
