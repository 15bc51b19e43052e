package parser

import (
	"regexp"
	"strings"
)

// superglobals are the request-scoped arrays whose element reads count as
// external input.
var superglobals = map[string]bool{
	"$_GET":     true,
	"$_POST":    true,
	"$_COOKIE":  true,
	"$_SESSION": true,
	"$_SERVER":  true,
	"$_FILES":   true,
	"$_ENV":     true,
	"$_REQUEST": true,
	"$GLOBALS":  true,
}

// controlKeywords are excluded from function-call recognition; `if (...)` is
// not a call.
var controlKeywords = map[string]bool{
	"if":       true,
	"elseif":   true,
	"else":     true,
	"while":    true,
	"for":      true,
	"foreach":  true,
	"switch":   true,
	"catch":    true,
	"function": true,
	"declare":  true,
}

// Recognition patterns, tried in order; first match wins.
var (
	reAssign = regexp.MustCompile(`^(\$[a-zA-Z_]\w*)\s*(=|\.=|\+=|-=|\*=|/=|%=)\s*([^=].*)$`)
	reMethod = regexp.MustCompile(`^(\$[a-zA-Z_]\w*)\s*->\s*([a-zA-Z_]\w*)\s*\(`)
	reStatic = regexp.MustCompile(`^([A-Za-z_]\w*)::([a-zA-Z_]\w*)\s*\(`)
	reFunc   = regexp.MustCompile(`^([a-zA-Z_]\w*)\s*\(`)
	reArray  = regexp.MustCompile(`^(\$[a-zA-Z_]\w*)\s*\[\s*([^\]]+?)\s*\]`)
	reVar    = regexp.MustCompile(`^(\$[a-zA-Z_]\w*)`)

	reVarAnywhere = regexp.MustCompile(`\$[a-zA-Z_]\w*`)
)

// ParseFile parses every line of content and returns the nodes it
// recognized. Lines that match no pattern produce nothing; that is absence
// of information, not an error.
func ParseFile(file, content string) []*Node {
	var nodes []*Node
	for i, line := range strings.Split(content, "\n") {
		if n := ParseLine(file, i+1, line); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// ParseLine classifies a single source line into zero or one statement node.
// Recognition order: assignment, method call, static call, function call,
// array access, bare variable reference.
func ParseLine(file string, line int, text string) *Node {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || isComment(trimmed) || isPHPTag(trimmed) {
		return nil
	}
	column := strings.Index(text, trimmed) + 1

	// Statement prefixes wrap an expression we still want to see.
	stmt := trimmed
	for _, prefix := range []string{"return ", "echo ", "print "} {
		if strings.HasPrefix(stmt, prefix) {
			stmt = strings.TrimSpace(strings.TrimPrefix(stmt, prefix))
			break
		}
	}

	if m := reAssign.FindStringSubmatch(stmt); m != nil {
		exprText := strings.TrimSuffix(strings.TrimSpace(m[3]), ";")
		expr := parseExpression(file, line, column, exprText)
		// The sub-node keeps the whole expression text so downstream
		// consumers can see variables outside the first matched pattern
		// (concatenations in particular).
		expr.Raw = exprText
		return &Node{
			Kind:     KindAssignment,
			File:     file,
			Line:     line,
			Column:   column,
			Raw:      trimmed,
			Target:   m[1],
			AssignOp: m[2],
			Expr:     expr,
		}
	}

	if m := reMethod.FindStringSubmatch(stmt); m != nil {
		return &Node{
			Kind:     KindMethodCall,
			File:     file,
			Line:     line,
			Column:   column,
			Raw:      trimmed,
			Receiver: m[1],
			Callee:   m[2],
			Args:     parseArgs(file, line, column, stmt),
		}
	}

	if m := reStatic.FindStringSubmatch(stmt); m != nil {
		return &Node{
			Kind:     KindStaticCall,
			File:     file,
			Line:     line,
			Column:   column,
			Raw:      trimmed,
			Receiver: m[1],
			Callee:   m[2],
			Args:     parseArgs(file, line, column, stmt),
		}
	}

	if m := reFunc.FindStringSubmatch(stmt); m != nil && !controlKeywords[m[1]] {
		return &Node{
			Kind:   KindFunctionCall,
			File:   file,
			Line:   line,
			Column: column,
			Raw:    trimmed,
			Callee: m[1],
			Args:   parseArgs(file, line, column, stmt),
		}
	}

	if m := reArray.FindStringSubmatch(stmt); m != nil {
		return &Node{
			Kind:          KindArrayAccess,
			File:          file,
			Line:          line,
			Column:        column,
			Raw:           trimmed,
			Container:     m[1],
			Key:           strings.Trim(m[2], `'" `),
			ExternalInput: superglobals[m[1]],
		}
	}

	if m := reVar.FindStringSubmatch(stmt); m != nil {
		return &Node{
			Kind:   KindVariableRef,
			File:   file,
			Line:   line,
			Column: column,
			Raw:    trimmed,
			Name:   m[1],
		}
	}

	return nil
}

// parseExpression shallowly classifies the right-hand side of an assignment
// or a call argument. It is a single pass, not an expression grammar.
func parseExpression(file string, line, column int, expr string) *Node {
	expr = strings.TrimSpace(expr)

	if isQuoted(expr) {
		return &Node{Kind: KindLiteral, File: file, Line: line, Column: column, Raw: expr, Text: expr}
	}
	if m := reMethod.FindStringSubmatch(expr); m != nil {
		return &Node{
			Kind: KindMethodCall, File: file, Line: line, Column: column, Raw: expr,
			Receiver: m[1], Callee: m[2], Args: parseArgs(file, line, column, expr),
		}
	}
	if m := reStatic.FindStringSubmatch(expr); m != nil {
		return &Node{
			Kind: KindStaticCall, File: file, Line: line, Column: column, Raw: expr,
			Receiver: m[1], Callee: m[2], Args: parseArgs(file, line, column, expr),
		}
	}
	if m := reFunc.FindStringSubmatch(expr); m != nil && !controlKeywords[m[1]] {
		return &Node{
			Kind: KindFunctionCall, File: file, Line: line, Column: column, Raw: expr,
			Callee: m[1], Args: parseArgs(file, line, column, expr),
		}
	}
	if m := reArray.FindStringSubmatch(expr); m != nil {
		return &Node{
			Kind: KindArrayAccess, File: file, Line: line, Column: column, Raw: expr,
			Container: m[1], Key: strings.Trim(m[2], `'" `), ExternalInput: superglobals[m[1]],
		}
	}
	if m := reVar.FindStringSubmatch(expr); m != nil {
		return &Node{Kind: KindVariableRef, File: file, Line: line, Column: column, Raw: expr, Name: m[1]}
	}
	return &Node{Kind: KindLiteral, File: file, Line: line, Column: column, Raw: expr, Text: expr}
}

// parseArgs extracts the top-level argument list of the first call in text
// and parses each argument as a shallow expression.
func parseArgs(file string, line, column int, text string) []*Node {
	parts := SplitArgs(text)
	args := make([]*Node, 0, len(parts))
	for _, p := range parts {
		args = append(args, parseExpression(file, line, column, p))
	}
	return args
}

// SplitArgs returns the top-level comma-separated arguments of the first
// parenthesized group in text, respecting nested parenthesis depth and
// quoted strings. It returns nil when there is no balanced group.
func SplitArgs(text string) []string {
	start := strings.IndexByte(text, '(')
	if start == -1 {
		return nil
	}

	depth := 0
	end := -1
	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			if c == quote && (i == 0 || text[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				end = i
			}
		}
		if end != -1 {
			break
		}
	}
	if end == -1 {
		return nil
	}

	inner := strings.TrimSpace(text[start+1 : end])
	if inner == "" {
		return nil
	}

	var args []string
	var cur strings.Builder
	depth = 0
	quote = 0
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if quote != 0 {
			if c == quote && (i == 0 || inner[i-1] != '\\') {
				quote = 0
			}
			cur.WriteByte(c)
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
			cur.WriteByte(c)
		case '(', '[':
			depth++
			cur.WriteByte(c)
		case ')', ']':
			depth--
			cur.WriteByte(c)
		case ',':
			if depth == 0 {
				args = append(args, strings.TrimSpace(cur.String()))
				cur.Reset()
			} else {
				cur.WriteByte(c)
			}
		default:
			cur.WriteByte(c)
		}
	}
	if s := strings.TrimSpace(cur.String()); s != "" {
		args = append(args, s)
	}
	return args
}

// VarsInText returns every variable occurrence in the raw text, in order,
// without duplicates. Used where the shallow expression parse cannot see
// every operand (string concatenation chains).
func VarsInText(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, v := range reVarAnywhere.FindAllString(text, -1) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// IsConcatExpr reports whether expr contains a top-level string
// concatenation operator (a dot outside quotes and parentheses).
func IsConcatExpr(expr string) bool {
	depth := 0
	var quote byte
	for i := 0; i < len(expr); i++ {
		c := expr[i]
		if quote != 0 {
			if c == quote && (i == 0 || expr[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"':
			quote = c
		case '(', '[':
			depth++
		case ')', ']':
			depth--
		case '.':
			// Not a concat if part of a float literal like 1.5.
			if depth == 0 {
				prevDigit := i > 0 && expr[i-1] >= '0' && expr[i-1] <= '9'
				nextDigit := i+1 < len(expr) && expr[i+1] >= '0' && expr[i+1] <= '9'
				if !(prevDigit && nextDigit) {
					return true
				}
			}
		}
	}
	return false
}

func isComment(line string) bool {
	return strings.HasPrefix(line, "//") ||
		strings.HasPrefix(line, "#") ||
		strings.HasPrefix(line, "*") ||
		strings.HasPrefix(line, "/*")
}

func isPHPTag(line string) bool {
	return strings.HasPrefix(line, "<?") || strings.HasPrefix(line, "?>")
}

func isQuoted(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (s[0] == '"' && s[len(s)-1] == '"' && !strings.ContainsAny(s[1:len(s)-1], `"`)) ||
		(s[0] == '\'' && s[len(s)-1] == '\'' && !strings.ContainsAny(s[1:len(s)-1], `'`))
}
