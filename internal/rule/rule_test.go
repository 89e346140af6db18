package rule

import "testing"

func TestCompileAndEvalMatches(t *testing.T) {
	r, err := Compile(`code >= 500 && topic.startsWith("/payments")`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !r.Eval(500, 0, 0, "/payments/refunds") {
		t.Fatal("expected the predicate to match")
	}
	if r.Eval(200, 0, 0, "/payments/refunds") {
		t.Fatal("a code below 500 should not match")
	}
	if r.Eval(500, 0, 0, "/orders") {
		t.Fatal("a topic outside /payments should not match")
	}
}

func TestCompileRejectsInvalidExpression(t *testing.T) {
	if _, err := Compile("code >>> 500"); err == nil {
		t.Fatal("expected a compile error for malformed CEL")
	}
}

func TestEvalTreatsTypeErrorAsNonMatch(t *testing.T) {
	r, err := Compile(`code`) // evaluates to an int, not bool
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if r.Eval(1, 0, 0, "") {
		t.Fatal("a non-bool result should be treated as non-matching, not panic")
	}
}

func TestMustCompilePanicsOnError(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("MustCompile should panic on an invalid expression")
		}
	}()
	MustCompile("code >>> 1")
}

func TestCompileCachesBySource(t *testing.T) {
	expr := `code == 201`
	a, err := Compile(expr)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Compile(expr)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("Compile should return the cached *Rule for a previously seen expression")
	}
}

func TestStringReturnsSource(t *testing.T) {
	r := MustCompile(`code == 200`)
	if got, want := r.String(), `code == 200`; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
}
