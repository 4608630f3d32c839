package identifier

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDProviderIssuesVersionSevenIdentifiers(t *testing.T) {
	provider := NewUUIDProvider()
	first, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected id error: %v", err)
	}
	second, err := provider.NewID()
	if err != nil {
		t.Fatalf("unexpected id error: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct identifiers")
	}
	parsed, err := uuid.Parse(first)
	if err != nil {
		t.Fatalf("expected parseable uuid: %v", err)
	}
	if parsed.Version() != 7 {
		t.Fatalf("expected version 7, got %d", parsed.Version())
	}
}
