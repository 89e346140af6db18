// Package rule implements optional CEL predicates layered on top of
// PLEB's filtering bitmask (spec.md §4.L, an enrichment on §4.G): a
// service or subscription may narrow its acceptance with a boolean
// expression over the message's code, filtering bits, handling bits,
// and destination topic, evaluated once per dispatch after the
// bitmask check already passed.
package rule

import (
	"fmt"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Rule is a compiled CEL predicate.
type Rule struct {
	program cel.Program
	source  string
}

var env = mustEnv()

// cache memoizes compiled rules by source expression. Predicate
// strings are typically config-driven and repeated across many
// service/subscription installs (the same narrowing rule attached to
// every handler in a family); compiling the same CEL expression with
// cel-go's parse/check pipeline on every install is wasted work once
// the set of distinct expressions in a deployment stabilizes.
var cache = mustCache()

func mustCache() *lru.Cache[string, *Rule] {
	c, err := lru.New[string, *Rule](256)
	if err != nil {
		panic(fmt.Sprintf("rule: constructing compile cache: %v", err))
	}
	return c
}

func mustEnv() *cel.Env {
	e, err := cel.NewEnv(
		cel.Variable("code", cel.IntType),
		cel.Variable("filtering", cel.UintType),
		cel.Variable("handling", cel.UintType),
		cel.Variable("topic", cel.StringType),
	)
	if err != nil {
		panic(fmt.Sprintf("rule: building CEL environment: %v", err))
	}
	return e
}

// Compile parses and checks a boolean CEL expression such as
// `code >= 500 && topic.startsWith("/payments")`. It returns an error
// if the expression does not parse or type-check. The result type is
// not checked here: an expression that yields a non-bool compiles, and
// Eval treats its result as non-matching.
func Compile(expr string) (*Rule, error) {
	if r, ok := cache.Get(expr); ok {
		return r, nil
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("rule: compiling %q: %w", expr, issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("rule: constructing program for %q: %w", expr, err)
	}
	r := &Rule{program: prg, source: expr}
	cache.Add(expr, r)
	return r, nil
}

// MustCompile is like Compile but panics on error; for package-level
// rule declarations.
func MustCompile(expr string) *Rule {
	r, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return r
}

// String returns the rule's source expression.
func (r *Rule) String() string { return r.source }

// Eval evaluates the rule against a message's fields. Any evaluation
// error (e.g. a runtime type mismatch) is treated as non-matching
// rather than propagated, since a predicate is an additive filter,
// never a source of dispatch failures.
func (r *Rule) Eval(code int, filtering, handling uint16, topic string) bool {
	out, _, err := r.program.Eval(map[string]any{
		"code":      int64(code),
		"filtering": uint64(filtering),
		"handling":  uint64(handling),
		"topic":     topic,
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
