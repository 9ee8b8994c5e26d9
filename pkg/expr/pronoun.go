package expr

import (
	"fmt"
	"strings"

	exprlang "github.com/expr-lang/expr"
)

// Pronoun forms a gender string resolves to, grounded in the original
// engine's pronoun module (subjective/objective/possessive_adjective/
// objective_reflexive), itself layered over its gendered_nominals table.
// StoryTangl narrows gender to three buckets since authored content refers
// to actors by a single `gender` local rather than the original's
// open-ended nominal substitution table.
var pronounForms = map[string][4]string{
	"male":   {"he", "him", "his", "himself"},
	"female": {"she", "her", "her", "herself"},
}

const (
	formSubjective = 0
	formObjective  = 1
	formPossessive = 2
	formReflexive  = 3
)

// resolvePronoun normalizes gender and returns the requested form, falling
// back to the gender-neutral "they" set for any value not in pronounForms
// (including an empty/undefined gender).
func resolvePronoun(gender any, form int) string {
	key := strings.ToLower(fmt.Sprint(gender))
	forms, ok := pronounForms[key]
	if !ok {
		forms = [4]string{"they", "them", "their", "themselves"}
	}
	return forms[form]
}

func pronounFilter(form int) func(params ...any) (any, error) {
	return func(params ...any) (any, error) {
		var gender any
		if len(params) > 0 {
			gender = params[0]
		}
		return resolvePronoun(gender, form), nil
	}
}

// pronounFunctions registers §4.9's fixed pronoun filter set so template
// expressions can pipe a `gender` local through e.g. `{{ gender | pronoun }}`
// to render "he"/"she"/"they" (and the objective/possessive/reflexive
// companions) without authored content branching on gender itself.
func pronounFunctions() []exprlang.Option {
	return []exprlang.Option{
		exprlang.Function("pronoun", pronounFilter(formSubjective)),
		exprlang.Function("pronoun_obj", pronounFilter(formObjective)),
		exprlang.Function("pronoun_poss", pronounFilter(formPossessive)),
		exprlang.Function("pronoun_refl", pronounFilter(formReflexive)),
	}
}
