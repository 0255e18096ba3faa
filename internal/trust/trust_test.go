package trust

import "testing"

func TestLookupExactScope(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Read", Scope: "/tmp/a.txt", Lifetime: Session})

	if _, ok := c.Lookup("Read", "/tmp/b.txt"); ok {
		t.Fatal("unrelated scope should not match")
	}
	g, ok := c.Lookup("Read", "/tmp/a.txt")
	if !ok || g.Scope != "/tmp/a.txt" {
		t.Fatalf("expected exact-scope match, got %+v ok=%v", g, ok)
	}
}

func TestLookupGlobScope(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Edit", Scope: "/repo/src/**", Lifetime: Session})

	if _, ok := c.Lookup("Edit", "/repo/src/pkg/file.go"); !ok {
		t.Fatal("expected glob scope to match nested path")
	}
	if _, ok := c.Lookup("Edit", "/other/file.go"); ok {
		t.Fatal("expected glob scope to reject unrelated path")
	}
}

func TestLookupMostSpecificWins(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Bash", Scope: "*", Lifetime: Session})
	c.Grant(Grant{Tool: "Bash", Scope: "git:*", Lifetime: Once})

	g, ok := c.Lookup("Bash", "git:status")
	if !ok || g.Scope != "git:*" {
		t.Fatalf("expected most specific pattern to win, got %+v", g)
	}
}

func TestOnceLifetimeConsumedAfterMatch(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Bash", Scope: "npm:install", Lifetime: Once})

	if _, ok := c.Lookup("Bash", "npm:install"); !ok {
		t.Fatal("expected first lookup to match")
	}
	if _, ok := c.Lookup("Bash", "npm:install"); ok {
		t.Fatal("expected once-lifetime grant to be consumed")
	}
}

func TestSessionLifetimeSurvivesClearTurn(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Read", Scope: "*", Lifetime: Session})
	c.Grant(Grant{Tool: "Write", Scope: "*", Lifetime: Turn})

	c.ClearTurn()

	if _, ok := c.Lookup("Read", "/x"); !ok {
		t.Fatal("session-lifetime grant should survive ClearTurn")
	}
	if _, ok := c.Lookup("Write", "/x"); ok {
		t.Fatal("turn-lifetime grant should be cleared by ClearTurn")
	}
}

func TestClearAllDropsEverything(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Read", Scope: "*", Lifetime: Session})
	c.ClearAll()

	if _, ok := c.Lookup("Read", "/x"); ok {
		t.Fatal("expected ClearAll to drop session grants too")
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Read", Scope: "/a/*", Lifetime: Session})
	c.Grant(Grant{Tool: "Bash", Scope: "git:*", Lifetime: Turn})

	snap := c.Snapshot()

	c2 := New()
	c2.Restore(snap)

	if _, ok := c2.Lookup("Read", "/a/b"); !ok {
		t.Fatal("expected restored grant to match")
	}
	if _, ok := c2.Lookup("Bash", "git:status"); !ok {
		t.Fatal("expected restored turn-lifetime grant to match before any ClearTurn")
	}
}

func TestDoubleStarScopeGrantMatchesAnything(t *testing.T) {
	c := New()
	c.Grant(Grant{Tool: "Read", Scope: "**", Lifetime: Session})

	if _, ok := c.Lookup("Read", "/anything/at/all.go"); !ok {
		t.Fatal("expected ** scope to match anything")
	}
}
