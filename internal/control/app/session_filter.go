package server

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"

	"github.com/hushwing/mediadeck/internal/mediacontrol"
)

// sessionMatcher reports whether a session snapshot satisfies a filter.
type sessionMatcher func(mediacontrol.Status) bool

func matchAll(mediacontrol.Status) bool { return true }

// sessionDeclarations returns the field declarations for session filtering.
func sessionDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("session_id", filtering.TypeString),
		filtering.DeclareIdent("playback", filtering.TypeString),
		filtering.DeclareIdent("audible", filtering.TypeBool),
		filtering.DeclareIdent("members", filtering.TypeInt),
	)
}

// parseSessionFilter parses an AIP-160 filter expression into a predicate
// over live session snapshots. An empty filter matches everything.
func parseSessionFilter(filterStr string) (sessionMatcher, error) {
	if strings.TrimSpace(filterStr) == "" {
		return matchAll, nil
	}

	decls, err := sessionDeclarations()
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}

	filter, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return nil, fmt.Errorf("parse filter: %w", err)
	}

	return compileSessionExpr(filter.CheckedExpr.Expr)
}

func compileSessionExpr(e *expr.Expr) (sessionMatcher, error) {
	if e == nil {
		return matchAll, nil
	}

	call, ok := e.ExprKind.(*expr.Expr_CallExpr)
	if !ok {
		return nil, fmt.Errorf("unsupported expression type: %T", e.ExprKind)
	}

	switch call.CallExpr.Function {
	case "_&&_", "AND":
		return compileSessionLogical(call.CallExpr.Args, true)
	case "_||_", "OR":
		return compileSessionLogical(call.CallExpr.Args, false)
	case "_==_", "=":
		return compileSessionComparison(call.CallExpr.Args, "=")
	case "_!=_", "!=":
		return compileSessionComparison(call.CallExpr.Args, "!=")
	case "_<_", "<":
		return compileSessionComparison(call.CallExpr.Args, "<")
	case "_<=_", "<=":
		return compileSessionComparison(call.CallExpr.Args, "<=")
	case "_>_", ">":
		return compileSessionComparison(call.CallExpr.Args, ">")
	case "_>=_", ">=":
		return compileSessionComparison(call.CallExpr.Args, ">=")
	default:
		return nil, fmt.Errorf("unsupported function: %s", call.CallExpr.Function)
	}
}

func compileSessionLogical(args []*expr.Expr, conjunction bool) (sessionMatcher, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("logical operator requires 2 arguments")
	}
	left, err := compileSessionExpr(args[0])
	if err != nil {
		return nil, err
	}
	right, err := compileSessionExpr(args[1])
	if err != nil {
		return nil, err
	}
	if conjunction {
		return func(status mediacontrol.Status) bool {
			return left(status) && right(status)
		}, nil
	}
	return func(status mediacontrol.Status) bool {
		return left(status) || right(status)
	}, nil
}

func compileSessionComparison(args []*expr.Expr, op string) (sessionMatcher, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("comparison requires 2 arguments")
	}

	ident, ok := args[0].ExprKind.(*expr.Expr_IdentExpr)
	if !ok {
		return nil, fmt.Errorf("expected identifier, got %T", args[0].ExprKind)
	}
	field := ident.IdentExpr.Name

	constant, ok := args[1].ExprKind.(*expr.Expr_ConstExpr)
	if !ok {
		return nil, fmt.Errorf("expected constant value for %s", field)
	}

	switch field {
	case "session_id":
		value, ok := constant.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
		if !ok {
			return nil, fmt.Errorf("session_id requires a string value")
		}
		return compileStringComparison(op, value.StringValue, func(status mediacontrol.Status) string {
			return status.SessionID
		})
	case "playback":
		value, ok := constant.ConstExpr.ConstantKind.(*expr.Constant_StringValue)
		if !ok {
			return nil, fmt.Errorf("playback requires a string value")
		}
		if _, known := mediacontrol.ParsePlaybackState(value.StringValue); !known {
			return nil, fmt.Errorf("unknown playback state: %s", value.StringValue)
		}
		return compileStringComparison(op, value.StringValue, func(status mediacontrol.Status) string {
			return status.Playback.String()
		})
	case "audible":
		value, ok := constant.ConstExpr.ConstantKind.(*expr.Constant_BoolValue)
		if !ok {
			return nil, fmt.Errorf("audible requires a boolean value")
		}
		switch op {
		case "=":
			return func(status mediacontrol.Status) bool {
				return status.Audible == value.BoolValue
			}, nil
		case "!=":
			return func(status mediacontrol.Status) bool {
				return status.Audible != value.BoolValue
			}, nil
		default:
			return nil, fmt.Errorf("audible does not support operator %s", op)
		}
	case "members":
		value, ok := constant.ConstExpr.ConstantKind.(*expr.Constant_Int64Value)
		if !ok {
			return nil, fmt.Errorf("members requires an integer value")
		}
		want := value.Int64Value
		return compileOrderedComparison(op, func(status mediacontrol.Status) bool {
			return int64(status.Members) == want
		}, func(status mediacontrol.Status) bool {
			return int64(status.Members) < want
		})
	default:
		return nil, fmt.Errorf("unknown field: %s", field)
	}
}

func compileStringComparison(op string, want string, get func(mediacontrol.Status) string) (sessionMatcher, error) {
	switch op {
	case "=":
		return func(status mediacontrol.Status) bool { return get(status) == want }, nil
	case "!=":
		return func(status mediacontrol.Status) bool { return get(status) != want }, nil
	default:
		return nil, fmt.Errorf("string field does not support operator %s", op)
	}
}

// compileOrderedComparison builds ordered operators from equality and
// less-than primitives.
func compileOrderedComparison(op string, eq sessionMatcher, lt sessionMatcher) (sessionMatcher, error) {
	switch op {
	case "=":
		return eq, nil
	case "!=":
		return func(status mediacontrol.Status) bool { return !eq(status) }, nil
	case "<":
		return lt, nil
	case "<=":
		return func(status mediacontrol.Status) bool { return lt(status) || eq(status) }, nil
	case ">":
		return func(status mediacontrol.Status) bool { return !lt(status) && !eq(status) }, nil
	case ">=":
		return func(status mediacontrol.Status) bool { return !lt(status) }, nil
	default:
		return nil, fmt.Errorf("unsupported operator %s", op)
	}
}
