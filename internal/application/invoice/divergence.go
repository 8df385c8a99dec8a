package invoice

import (
	"errors"
	"math"
	"strings"

	"github.com/Knetic/govaluate"
)

// DefaultDivergenceRule flags invoices whose total strays more than 10% from
// the agreed cost. The rule is a boolean expression over {total, agreed}.
const DefaultDivergenceRule = "abs(total - agreed) > agreed * 0.10"

var exprFunctions = map[string]govaluate.ExpressionFunction{
	"abs": func(args ...interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, errors.New("abs takes one argument")
		}
		v, ok := args[0].(float64)
		if !ok {
			return nil, errors.New("abs takes a number")
		}
		return math.Abs(v), nil
	},
}

// Diverges evaluates rule against the invoice total and the agreed cost.
// An empty rule never flags.
func Diverges(rule string, total, agreed float64) (bool, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return false, nil
	}
	expr, err := govaluate.NewEvaluableExpressionWithFunctions(rule, exprFunctions)
	if err != nil {
		return false, err
	}
	result, err := expr.Evaluate(map[string]interface{}{
		"total":  total,
		"agreed": agreed,
	})
	if err != nil {
		return false, err
	}
	b, ok := result.(bool)
	if !ok {
		return false, errors.New("divergence rule did not evaluate to boolean")
	}
	return b, nil
}
