// Package parser turns lines of PHP-flavored source text into typed
// statement nodes. It is intentionally line-granular: each line yields zero
// or one node, and anything it cannot classify is silently skipped. It is a
// pattern recognizer for the data-flow stage, not a compiler front end.
package parser

// NodeKind discriminates the closed set of statement node variants.
type NodeKind int

const (
	KindAssignment NodeKind = iota
	KindFunctionCall
	KindMethodCall
	KindStaticCall
	KindArrayAccess
	KindVariableRef
	KindLiteral
)

// String returns the lowercase label used in logs and flow paths.
func (k NodeKind) String() string {
	switch k {
	case KindAssignment:
		return "assignment"
	case KindFunctionCall:
		return "function_call"
	case KindMethodCall:
		return "method_call"
	case KindStaticCall:
		return "static_call"
	case KindArrayAccess:
		return "array_access"
	case KindVariableRef:
		return "variable_ref"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Node is one parsed statement or sub-expression. Every node belongs to
// exactly one file and line, and is immutable once created. Which fields are
// populated depends on Kind:
//
//	KindAssignment:   Target, AssignOp, Expr
//	Kind*Call:        Callee, Receiver (method/static only), Args
//	KindArrayAccess:  Container, Key, ExternalInput
//	KindVariableRef:  Name
//	KindLiteral:      Text
type Node struct {
	Kind   NodeKind
	File   string
	Line   int
	Column int
	Raw    string

	// Assignment fields.
	Target   string
	AssignOp string
	Expr     *Node

	// Call fields.
	Callee   string
	Receiver string
	Args     []*Node

	// Array access fields.
	Container     string
	Key           string
	ExternalInput bool

	// Variable reference.
	Name string

	// Literal text.
	Text string
}

// IsCall reports whether the node is any of the call variants.
func (n *Node) IsCall() bool {
	switch n.Kind {
	case KindFunctionCall, KindMethodCall, KindStaticCall:
		return true
	}
	return false
}

// Vars returns every variable name referenced anywhere in the node's
// subtree, in first-appearance order without duplicates.
func (n *Node) Vars() []string {
	var out []string
	seen := map[string]struct{}{}
	n.collectVars(&out, seen)
	return out
}

func (n *Node) collectVars(out *[]string, seen map[string]struct{}) {
	if n == nil {
		return
	}
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		*out = append(*out, name)
	}

	switch n.Kind {
	case KindAssignment:
		n.Expr.collectVars(out, seen)
	case KindFunctionCall, KindMethodCall, KindStaticCall:
		if n.Kind == KindMethodCall {
			add(n.Receiver)
		}
		for _, arg := range n.Args {
			arg.collectVars(out, seen)
		}
	case KindArrayAccess:
		add(n.Container)
	case KindVariableRef:
		add(n.Name)
	}
}
