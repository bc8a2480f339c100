package invariant_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/aledsdavies/stripcomments/internal/invariant"
)

func TestPreconditionPass(t *testing.T) {
	invariant.Precondition(true, "this should pass")
	invariant.Precondition(1 == 1, "math works")
}

func TestPreconditionFail(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for false precondition")
		}
		msg := fmt.Sprintf("%v", r)
		if !strings.Contains(msg, "PRECONDITION VIOLATION") {
			t.Errorf("expected PRECONDITION VIOLATION, got: %s", msg)
		}
		if !strings.Contains(msg, "source must not be empty") {
			t.Errorf("expected custom message, got: %s", msg)
		}
		if !strings.Contains(msg, "at ") {
			t.Errorf("expected call-site context, got: %s", msg)
		}
	}()

	invariant.Precondition(false, "source must not be empty")
}

func TestInvariantFail(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic for false invariant")
		}
		if !strings.Contains(fmt.Sprintf("%v", r), "INVARIANT VIOLATION") {
			t.Errorf("expected INVARIANT VIOLATION, got: %v", r)
		}
	}()

	invariant.Invariant(1 > 2, "block depth must stay non-negative")
}

func TestNotNilPass(t *testing.T) {
	invariant.NotNil(&struct{}{}, "frame")
}

func TestNotNilFailsOnTypedNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for typed nil pointer")
		}
	}()

	var p *int
	invariant.NotNil(p, "p")
}

func TestInRange(t *testing.T) {
	invariant.InRange(2, 0, 3, "hashCount")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range value")
		}
	}()
	invariant.InRange(-1, 0, 3, "hashCount")
}
