package administrations

import "testing"

func TestSlotKey_StableAndDistinct(t *testing.T) {
	a := SlotKey("animal-1", "reg-1", "2025-06-10", 0)
	b := SlotKey("animal-1", "reg-1", "2025-06-10", 0)
	if a != b {
		t.Fatalf("same logical dose must produce the same key: %s vs %s", a, b)
	}

	// Distinto slot del mismo día => clave distinta.
	if c := SlotKey("animal-1", "reg-1", "2025-06-10", 1); c == a {
		t.Fatal("different slot index must produce a different key")
	}
	// Mismo slot, otro día => clave distinta.
	if c := SlotKey("animal-1", "reg-1", "2025-06-11", 0); c == a {
		t.Fatal("different local day must produce a different key")
	}
	// Otro régimen => clave distinta.
	if c := SlotKey("animal-1", "reg-2", "2025-06-10", 0); c == a {
		t.Fatal("different regimen must produce a different key")
	}
}

func TestPRNKey_NonceSeparatesDoses(t *testing.T) {
	a := PRNKey("animal-1", "reg-1", "2025-06-10", "nonce-1")
	if b := PRNKey("animal-1", "reg-1", "2025-06-10", "nonce-1"); b != a {
		t.Fatal("same nonce must retry the same dose")
	}
	if b := PRNKey("animal-1", "reg-1", "2025-06-10", "nonce-2"); b == a {
		t.Fatal("a new nonce is a new dose")
	}
	// Las claves PRN y de slot nunca colisionan entre sí.
	if b := SlotKey("animal-1", "reg-1", "2025-06-10", 0); b == a {
		t.Fatal("PRN and slot keys must not collide")
	}
}
