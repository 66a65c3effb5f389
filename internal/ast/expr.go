package ast

import "fmt"

// ValueResolver maps an enum value reference ("STATUS_OK",
// "Color.RED", "android.hardware.foo@1.0::Flags.A") to its integer.
type ValueResolver func(ref string) (int64, error)

// ConstExpr is an unevaluated integer constant expression. Expressions
// are built by the parser and evaluated once imports are linked, so that
// references into imported enums resolve.
type ConstExpr interface {
	Eval(res ValueResolver) (int64, error)
}

// LiteralExpr is an integer literal.
type LiteralExpr struct {
	V int64
}

func (e LiteralExpr) Eval(ValueResolver) (int64, error) { return e.V, nil }

// RefExpr is a reference to a declared enum value.
type RefExpr struct {
	Name string
}

func (e RefExpr) Eval(res ValueResolver) (int64, error) {
	if res == nil {
		return 0, fmt.Errorf("reference %q in non-constant context", e.Name)
	}
	return res(e.Name)
}

// UnaryExpr applies -, ~ or + to an operand.
type UnaryExpr struct {
	Op byte
	X  ConstExpr
}

func (e UnaryExpr) Eval(res ValueResolver) (int64, error) {
	x, err := e.X.Eval(res)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case '-':
		return -x, nil
	case '~':
		return ^x, nil
	case '+':
		return x, nil
	}
	return 0, fmt.Errorf("unknown unary operator %q", string(e.Op))
}

// BinaryExpr applies an arithmetic, shift or bitwise operator.
type BinaryExpr struct {
	Op   string
	L, R ConstExpr
}

func (e BinaryExpr) Eval(res ValueResolver) (int64, error) {
	l, err := e.L.Eval(res)
	if err != nil {
		return 0, err
	}
	r, err := e.R.Eval(res)
	if err != nil {
		return 0, err
	}
	switch e.Op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, fmt.Errorf("division by zero in constant expression")
		}
		return l / r, nil
	case "%":
		if r == 0 {
			return 0, fmt.Errorf("modulo by zero in constant expression")
		}
		return l % r, nil
	case "<<":
		return l << uint64(r), nil
	case ">>":
		return l >> uint64(r), nil
	case "|":
		return l | r, nil
	case "&":
		return l & r, nil
	case "^":
		return l ^ r, nil
	}
	return 0, fmt.Errorf("unknown operator %q", e.Op)
}
