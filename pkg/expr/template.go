package expr

import (
	"fmt"
	"regexp"

	exprlang "github.com/expr-lang/expr"
	"github.com/google/uuid"

	"github.com/derekmerck/storytangl/pkg/tangerr"
)

var templatePlaceholderRE = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

// templateNS is a stable uid used to key the program cache for template
// placeholder expressions, which are compiled per source string rather
// than per entity (a Block's content is its own cache key).
var templateNS = uuid.Nil

// Template implements journal.Expander: it substitutes every `{{ expr }}`
// placeholder in source with the string form of expr evaluated against
// env, using the same restricted compiler and cache as predicates (§4.9
// "a limited set of filters"; expr-lang's pipe operator serves as the
// filter syntax, e.g. `{{ gender | pronoun }}` renders "he"/"she"/"they").
func (e *Evaluator) Template(source string, env map[string]any) (string, error) {
	var firstErr error
	out := templatePlaceholderRE.ReplaceAllStringFunc(source, func(m string) string {
		if firstErr != nil {
			return m
		}
		expr := templatePlaceholderRE.FindStringSubmatch(m)[1]
		if deniedTokens.MatchString(expr) {
			firstErr = tangerr.New(tangerr.UnsafeExpression, expr)
			return m
		}
		key := cacheKey(templateNS, expr)
		program, ok := e.predicates.get(key)
		if !ok {
			var err error
			opts := append([]exprlang.Option{exprlang.Env(map[string]any{}), exprlang.AllowUndefinedVariables()}, pronounFunctions()...)
			program, err = exprlang.Compile(expr, opts...)
			if err != nil {
				firstErr = tangerr.Wrap(tangerr.UnsafeExpression, expr, err)
				return m
			}
			e.predicates.put(key, program)
		}
		val, err := exprlang.Run(program, env)
		if err != nil || val == nil {
			// Undefined names (a concept not yet resolvable, e.g.) leave
			// the placeholder untouched so a later expansion pass may fill
			// it in, matching journal's own identity-on-miss convention.
			return m
		}
		return fmt.Sprint(val)
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}
