package services_test

import (
	"errors"
	"strings"
	"testing"

	"shelfsync/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrItemWrite, "syncer", "update", "write-back failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrItemWrite) {
		t.Fatalf("expected marker retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected base error wrapped, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"syncer", "update", "write-back failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "cache", "put", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	fatal := services.Wrap(services.ErrConfiguration, "sync", "providers", "none enabled", nil)
	if !services.IsFatal(fatal) {
		t.Fatal("expected configuration errors to be fatal")
	}
	itemScoped := services.Wrap(services.ErrAuditWrite, "syncer", "audit", "append failed", nil)
	if services.IsFatal(itemScoped) {
		t.Fatal("expected audit write errors to stay item-scoped")
	}
}
