package check

import (
	"errors"
	"testing"

	"gyre/internal/front/c"
)

func parse(t *testing.T, src string) *c.Program {
	t.Helper()
	prog, err := c.Parse("test.c", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestRebindOfParamRejected(t *testing.T) {
	prog := parse(t, `field main(field x) {
		field x = x;
		return x;
	}`)
	var rebind *RebindError
	if err := Program(prog); !errors.As(err, &rebind) {
		t.Fatalf("expected *RebindError, got %v", err)
	}
}

func TestRebindInNestedScopeAllowed(t *testing.T) {
	prog := parse(t, `field main(bool c, field x) {
		if (c) {
			field x = x;
			return x;
		}
		return x;
	}`)
	if err := Program(prog); err != nil {
		t.Fatalf("shadowing a param in a nested block should be allowed: %v", err)
	}
}

func TestMissingReturnRejected(t *testing.T) {
	prog := parse(t, `field main(bool c, field x) {
		if (c) {
			return x;
		}
	}`)
	var missing *MissingReturnError
	if err := Program(prog); !errors.As(err, &missing) {
		t.Fatalf("expected *MissingReturnError, got %v", err)
	}
}

func TestIfElseBothReturningSatisfiesReturn(t *testing.T) {
	prog := parse(t, `field main(bool c, field a, field b) {
		if (c) {
			return a;
		} else {
			return b;
		}
	}`)
	if err := Program(prog); err != nil {
		t.Fatalf("an if/else where both arms return should satisfy the function: %v", err)
	}
}

func TestUnreachableCodeRejected(t *testing.T) {
	prog := parse(t, `field main(field x) {
		return x;
		assert(x == x);
	}`)
	var unreachable *UnreachableCodeError
	if err := Program(prog); !errors.As(err, &unreachable) {
		t.Fatalf("expected *UnreachableCodeError, got %v", err)
	}
}

func TestForLoopNeverSatisfiesReturn(t *testing.T) {
	prog := parse(t, `field main(field n) {
		for (field i = 0; i < 3; i = i + 1) {
			return n;
		}
	}`)
	var missing *MissingReturnError
	if err := Program(prog); !errors.As(err, &missing) {
		t.Fatalf("expected *MissingReturnError, got %v", err)
	}
}
