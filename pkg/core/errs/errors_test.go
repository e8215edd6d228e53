package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestKinds(t *testing.T) {
	if err := Configuration("no descriptor for %s", "users"); !errors.Is(err, ErrConfiguration) {
		t.Errorf("Expected ErrConfiguration, got %v", err)
	}
	if err := Usage("positional argument"); !errors.Is(err, ErrUsage) {
		t.Errorf("Expected ErrUsage, got %v", err)
	}
}

func TestDriverError_KeepsOriginal(t *testing.T) {
	original := errors.New("connection refused")
	err := Driver("open connection", original)

	if !errors.Is(err, ErrDriver) {
		t.Error("Expected errors.Is(err, ErrDriver)")
	}
	if !errors.Is(err, original) {
		t.Error("Original error must stay reachable")
	}
	if err.Error() != "open connection: connection refused" {
		t.Errorf("Unexpected message: %s", err.Error())
	}

	wrapped := fmt.Errorf("insert: %w", err)
	if again := Driver("execute", wrapped); again != wrapped {
		t.Error("Already wrapped driver error must not be wrapped twice")
	}
	if Driver("noop", nil) != nil {
		t.Error("nil must stay nil")
	}
}
