package expr

import (
	"fmt"
	"regexp"
	"strings"

	exprlang "github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/tangerr"
)

// deniedTokens rejects constructs §4.9 calls out explicitly: imports,
// dunder access, and process control. expr-lang's own grammar has no
// statement form for these, but authors write story scripts by hand and
// a clear UnsafeExpression beats a confusing parse error.
var deniedTokens = regexp.MustCompile(`(?i)\b(import|exec|subprocess|os\.|unsafe)\b|__`)

// assignmentRE recognizes the effect-mode `target = expr` form. A single
// `=` (not `==`, `!=`, `<=`, `>=`) followed by a bare identifier target.
var assignmentRE = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=(?:[^=].*|)$`)

// Evaluator compiles and runs predicate/effect strings against a resolved
// namespace, caching compiled programs per (uid, source hash).
type Evaluator struct {
	predicates *programCache
	effects    *programCache
}

// NewEvaluator constructs an Evaluator with a bounded LRU cache in each of
// the predicate and effect compilation modes.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		predicates: newProgramCache(256),
		effects:    newProgramCache(256),
	}
}

// Assignment is the compiled form of an effect-mode expression.
type Assignment struct {
	Target string
}

// CompilePredicate compiles source as a boolean expression, caching the
// result under (uid, source). Disallowed constructs raise UnsafeExpression.
func (e *Evaluator) CompilePredicate(uid uuid.UUID, source string) error {
	if strings.TrimSpace(source) == "" {
		return nil
	}
	if deniedTokens.MatchString(source) {
		return tangerr.New(tangerr.UnsafeExpression, source)
	}
	key := cacheKey(uid, source)
	if _, ok := e.predicates.get(key); ok {
		return nil
	}
	// AllowUndefinedVariables lets a predicate name a namespace concept not
	// yet bound this tick (e.g. an unresolved role binding) without
	// raising UnsafeExpression; EvaluatePredicate treats the resulting nil
	// as false, per §8 "Boundary behaviors".
	opts := append([]exprlang.Option{exprlang.Env(map[string]any{}), exprlang.AsBool(), exprlang.AllowUndefinedVariables()}, pronounFunctions()...)
	program, err := exprlang.Compile(source, opts...)
	if err != nil {
		return tangerr.Wrap(tangerr.UnsafeExpression, source, err)
	}
	e.predicates.put(key, program)
	return nil
}

// EvaluatePredicate compiles (if needed) and runs source against ns,
// returning its boolean result.
func (e *Evaluator) EvaluatePredicate(uid uuid.UUID, source string, ns map[string]any) (bool, error) {
	if strings.TrimSpace(source) == "" {
		return true, nil
	}
	if err := e.CompilePredicate(uid, source); err != nil {
		return false, err
	}
	key := cacheKey(uid, source)
	program, ok := e.predicates.get(key)
	if !ok {
		return false, tangerr.New(tangerr.CacheMiss, source)
	}
	out, err := exprlang.Run(program, ns)
	if err != nil {
		return false, tangerr.Wrap(tangerr.UnsafeExpression, source, err)
	}
	if out == nil {
		// An undefined namespace name resolves to nil under
		// AllowUndefinedVariables; treat it as false rather than erroring.
		return false, nil
	}
	b, ok := out.(bool)
	if !ok {
		return false, tangerr.New(tangerr.UnsafeExpression, fmt.Sprintf("%s: predicate returned %T, want bool", source, out))
	}
	return b, nil
}

// CompileEffect splits source into its `target = expr` assignment and
// compiles the right-hand side, caching it under (uid, source). target
// must be a bare identifier; it is resolved against locals by the caller.
func (e *Evaluator) CompileEffect(uid uuid.UUID, source string) (*Assignment, error) {
	if deniedTokens.MatchString(source) {
		return nil, tangerr.New(tangerr.UnsafeExpression, source)
	}
	m := assignmentRE.FindStringSubmatch(source)
	if m == nil {
		return nil, tangerr.New(tangerr.UnsafeExpression, "effect must be of the form target = expr: "+source)
	}
	target := m[1]
	rhs := strings.TrimSpace(source[strings.Index(source, "=")+1:])

	key := cacheKey(uid, source)
	if _, ok := e.effects.get(key); !ok {
		opts := append([]exprlang.Option{exprlang.Env(map[string]any{}), exprlang.AllowUndefinedVariables()}, pronounFunctions()...)
		program, err := exprlang.Compile(rhs, opts...)
		if err != nil {
			return nil, tangerr.Wrap(tangerr.UnsafeExpression, source, err)
		}
		e.effects.put(key, program)
	}
	return &Assignment{Target: target}, nil
}

// EvaluateEffect compiles (if needed) and runs the right-hand side of
// source against ns, returning the assignment target and computed value.
func (e *Evaluator) EvaluateEffect(uid uuid.UUID, source string, ns map[string]any) (*Assignment, any, error) {
	a, err := e.CompileEffect(uid, source)
	if err != nil {
		return nil, nil, err
	}
	program, ok := e.effects.get(cacheKey(uid, source))
	if !ok {
		return nil, nil, tangerr.New(tangerr.CacheMiss, source)
	}
	out, err := exprlang.Run(program, ns)
	if err != nil {
		return nil, nil, tangerr.Wrap(tangerr.UnsafeExpression, source, err)
	}
	return a, out, nil
}
