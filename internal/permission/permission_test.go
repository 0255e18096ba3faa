package permission

import (
	"context"
	"testing"
	"time"

	"github.com/loomcode/loom/internal/bus"
	"github.com/loomcode/loom/internal/trust"
)

func TestDefaultClassifierReadOnly(t *testing.T) {
	s, scope := DefaultClassifier("read", map[string]any{"file_path": "/tmp/a.go"})
	if s != ReadOnly || scope != "/tmp/a.go" {
		t.Fatalf("got (%v, %q)", s, scope)
	}
}

func TestDefaultClassifierBash(t *testing.T) {
	s, scope := DefaultClassifier("bash", map[string]any{"command": "git status"})
	if s != Destructive || scope != "git:status" {
		t.Fatalf("got (%v, %q)", s, scope)
	}
}

func TestIsDestructiveBash(t *testing.T) {
	if !IsDestructiveBash("rm -rf /tmp/x") {
		t.Fatal("expected rm -rf to be flagged destructive")
	}
	if IsDestructiveBash("ls -la") {
		t.Fatal("ls -la should not be destructive")
	}
}

func TestCheckReadOnlyAlwaysAllows(t *testing.T) {
	g := New(bus.New(), trust.New())
	d, err := g.Check(context.Background(), "read", "read a.go", map[string]any{"file_path": "/a.go"}, false)
	if err != nil || d != Allow {
		t.Fatalf("expected Allow, got %v err=%v", d, err)
	}
}

func TestCheckTrustHitAllowsWithoutPrompt(t *testing.T) {
	tc := trust.New()
	tc.Grant(trust.Grant{Tool: "edit", Scope: "/repo/**", Lifetime: trust.Session})
	g := New(bus.New(), tc)

	d, err := g.Check(context.Background(), "edit", "edit file", map[string]any{"file_path": "/repo/a.go"}, true)
	if err != nil || d != Allow {
		t.Fatalf("expected Allow from trust hit, got %v err=%v", d, err)
	}
}

func TestCheckMissPromptsAndApproves(t *testing.T) {
	b := bus.New()
	g := New(b, trust.New())

	b.Subscribe(bus.PermissionRequest, func(e bus.Event) {
		req := e.Data.(Request)
		b.Emit(bus.Event{Type: bus.PermissionResponse, Data: Response{RequestID: req.RequestID, Approved: true}})
	})

	d, err := g.Check(context.Background(), "edit", "edit file", map[string]any{"file_path": "/repo/a.go"}, true)
	if err != nil || d != Allow {
		t.Fatalf("expected Allow after approval, got %v err=%v", d, err)
	}
}

func TestCheckMissPromptsAndDenies(t *testing.T) {
	b := bus.New()
	g := New(b, trust.New())

	b.Subscribe(bus.PermissionRequest, func(e bus.Event) {
		req := e.Data.(Request)
		b.Emit(bus.Event{Type: bus.PermissionResponse, Data: Response{RequestID: req.RequestID, Approved: false}})
	})

	d, err := g.Check(context.Background(), "edit", "edit file", map[string]any{"file_path": "/repo/a.go"}, true)
	if err != ErrDenied || d != Deny {
		t.Fatalf("expected Deny/ErrDenied, got %v err=%v", d, err)
	}
}

func TestCheckPersistsSessionGrant(t *testing.T) {
	b := bus.New()
	tc := trust.New()
	g := New(b, tc)

	b.Subscribe(bus.PermissionRequest, func(e bus.Event) {
		req := e.Data.(Request)
		b.Emit(bus.Event{Type: bus.PermissionResponse, Data: Response{
			RequestID: req.RequestID, Approved: true, GrantScope: ScopeThisSession,
		}})
	})

	if _, err := g.Check(context.Background(), "edit", "edit", map[string]any{"file_path": "/x.go"}, true); err != nil {
		t.Fatalf("first check: %v", err)
	}

	// Second check for the same tool should now hit the trust cache
	// without requiring another round of subscribers.
	b.Cleanup()
	d, err := g.Check(context.Background(), "edit", "edit", map[string]any{"file_path": "/y.go"}, true)
	if err != nil || d != Allow {
		t.Fatalf("expected session grant to cover subsequent calls, got %v err=%v", d, err)
	}
}

func TestCheckInterruptedDenies(t *testing.T) {
	b := bus.New()
	g := New(b, trust.New())
	g.Interrupted = func() bool { return true }

	d, err := g.Check(context.Background(), "edit", "edit", map[string]any{"file_path": "/x.go"}, true)
	if err != ErrDenied || d != Deny {
		t.Fatalf("expected interruption to deny, got %v err=%v", d, err)
	}
}

func TestCheckContextCancelDenies(t *testing.T) {
	b := bus.New()
	g := New(b, trust.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := g.Check(ctx, "edit", "edit", map[string]any{"file_path": "/x.go"}, true)
	if err != ErrDenied || d != Deny {
		t.Fatalf("expected cancelled context to deny, got %v err=%v", d, err)
	}
}

func TestCheckTimeoutDenies(t *testing.T) {
	b := bus.New()
	g := New(b, trust.New())
	g.Timeout = 10 * time.Millisecond

	d, err := g.Check(context.Background(), "edit", "edit", map[string]any{"file_path": "/x.go"}, true)
	if err != ErrDenied || d != Deny {
		t.Fatalf("expected timeout to deny, got %v err=%v", d, err)
	}
}
