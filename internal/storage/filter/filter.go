// Package filter provides AIP-160 filter expression parsing and SQL translation.
package filter

import (
	"fmt"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// ActivityDeclarations returns the field declarations for activity filtering.
func ActivityDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("session_id", filtering.TypeString),
		filtering.DeclareIdent("kind", filtering.TypeString),
		filtering.DeclareIdent("playback", filtering.TypeString),
		filtering.DeclareIdent("audible", filtering.TypeBool),
		filtering.DeclareIdent("members", filtering.TypeInt),
		filtering.DeclareIdent("ts", filtering.TypeTimestamp),
	)
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "session_id = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// fieldMapping maps filter field names to SQL column names.
var fieldMapping = map[string]string{
	"session_id": "session_id",
	"kind":       "kind",
	"playback":   "playback",
	"audible":    "audible",
	"members":    "members",
	"ts":         "timestamp",
}

// ParseActivityFilter parses an AIP-160 filter expression and returns a SQL condition.
// Returns an empty condition for an empty filter string.
func ParseActivityFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}

	decls, err := ActivityDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}

	return translateExpr(filter.CheckedExpr.Expr)
}

// translateExpr translates a CEL expression to a SQL condition.
func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

// translateCall translates a CEL function call to a SQL condition.
func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return translateLogical(call.Args, "AND")
	case "_||_", "OR":
		return translateLogical(call.Args, "OR")
	case "_==_", "=":
		return translateComparison(call.Args, "=")
	case "_!=_", "!=":
		return translateComparison(call.Args, "!=")
	case "_<_", "<":
		return translateComparison(call.Args, "<")
	case "_<=_", "<=":
		return translateComparison(call.Args, "<=")
	case "_>_", ">":
		return translateComparison(call.Args, ">")
	case "_>=_", ">=":
		return translateComparison(call.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateLogical(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	field, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	column, ok := fieldMapping[field]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", field)
	}

	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_CallExpr:
		// Handle timestamp("...") function calls
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return extractTimestampValue(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}

	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}

func extractTimestampValue(e *expr.Expr) (int64, error) {
	if e == nil {
		return 0, fmt.Errorf("nil timestamp argument")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		if strVal, ok := kind.ConstExpr.ConstantKind.(*expr.Constant_StringValue); ok {
			t, err := time.Parse(time.RFC3339, strVal.StringValue)
			if err != nil {
				t, err = time.Parse(time.RFC3339Nano, strVal.StringValue)
				if err != nil {
					return 0, fmt.Errorf("invalid timestamp format: %s", strVal.StringValue)
				}
			}
			// Activity timestamps are stored as UTC millisecond integers.
			return t.UTC().UnixMilli(), nil
		}
		return 0, fmt.Errorf("timestamp argument must be a string")
	default:
		return 0, fmt.Errorf("timestamp argument must be a constant string")
	}
}
