package parser

import (
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine_Assignment(t *testing.T) {
	n := ParseLine("a.php", 3, `  $host = $_SERVER['HTTP_HOST'];`)
	require.NotNil(t, n)
	assert.Equal(t, KindAssignment, n.Kind)
	assert.Equal(t, "$host", n.Target)
	assert.Equal(t, "=", n.AssignOp)
	assert.Equal(t, 3, n.Line)
	assert.Equal(t, 3, n.Column)

	require.NotNil(t, n.Expr)
	assert.Equal(t, KindArrayAccess, n.Expr.Kind)
	assert.Equal(t, "$_SERVER", n.Expr.Container)
	assert.Equal(t, "HTTP_HOST", n.Expr.Key)
	assert.True(t, n.Expr.ExternalInput)
}

func TestParseLine_CompoundAssignOps(t *testing.T) {
	n := ParseLine("a.php", 1, `$url .= $host;`)
	require.NotNil(t, n)
	assert.Equal(t, KindAssignment, n.Kind)
	assert.Equal(t, ".=", n.AssignOp)

	cmp := ParseLine("a.php", 1, `$a == $b;`)
	require.NotNil(t, cmp)
	assert.NotEqual(t, KindAssignment, cmp.Kind, "comparison is not an assignment")
}

func TestParseLine_Calls(t *testing.T) {
	n := ParseLine("a.php", 1, `$request->getHost();`)
	require.NotNil(t, n)
	assert.Equal(t, KindMethodCall, n.Kind)
	assert.Equal(t, "$request", n.Receiver)
	assert.Equal(t, "getHost", n.Callee)
	assert.True(t, n.IsCall())

	n = ParseLine("a.php", 2, `URL::to($path, $host);`)
	require.NotNil(t, n)
	assert.Equal(t, KindStaticCall, n.Kind)
	assert.Equal(t, "URL", n.Receiver)
	assert.Equal(t, "to", n.Callee)
	require.Len(t, n.Args, 2)
	assert.Equal(t, []string{"$path", "$host"}, n.Vars())

	n = ParseLine("a.php", 3, `redirect($url);`)
	require.NotNil(t, n)
	assert.Equal(t, KindFunctionCall, n.Kind)
	assert.Equal(t, "redirect", n.Callee)
}

func TestParseLine_ControlKeywordsAreNotCalls(t *testing.T) {
	for _, line := range []string{
		`if ($a) {`,
		`while ($b) {`,
		`foreach ($items as $item) {`,
		`switch ($x) {`,
	} {
		n := ParseLine("a.php", 1, line)
		if n != nil {
			assert.False(t, n.IsCall(), "control statement parsed as call: %s", line)
		}
	}
}

func TestParseLine_SkipsNoise(t *testing.T) {
	for _, line := range []string{
		"",
		"   ",
		"// comment",
		"# hash comment",
		"* docblock body",
		"/* block */",
		"<?php",
		"?>",
	} {
		assert.Nil(t, ParseLine("a.php", 1, line), "expected no node for %q", line)
	}
}

func TestParseLine_StatementPrefixes(t *testing.T) {
	n := ParseLine("a.php", 1, `return redirect($url);`)
	require.NotNil(t, n)
	assert.Equal(t, KindFunctionCall, n.Kind)
	assert.Equal(t, "redirect", n.Callee)

	n = ParseLine("a.php", 2, `echo $host;`)
	require.NotNil(t, n)
	assert.Equal(t, KindVariableRef, n.Kind)
	assert.Equal(t, "$host", n.Name)
}

func TestParseFile_LineNumbers(t *testing.T) {
	nodes := ParseFile("f.php", "<?php\n$a = 1;\n\n// skip\n$b = $a;\n")
	require.Len(t, nodes, 2)
	assert.Equal(t, 2, nodes[0].Line)
	assert.Equal(t, 5, nodes[1].Line)
	for _, n := range nodes {
		assert.Equal(t, "f.php", n.File)
	}
}

func TestSplitArgs(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`f($a, $b)`, []string{"$a", "$b"}},
		{`f($a, g($b, $c), $d)`, []string{"$a", "g($b, $c)", "$d"}},
		{`f("a,b", $c)`, []string{`"a,b"`, "$c"}},
		{`f('with (paren', $x)`, []string{`'with (paren`, "$x"}},
		{`f()`, nil},
		{`no parens`, nil},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SplitArgs(tc.in), "input %q", tc.in)
	}
}

func TestVarsInText(t *testing.T) {
	vars := VarsInText(`"https://" . $host . "/" . $path . $host`)
	assert.Equal(t, []string{"$host", "$path"}, vars, "deduped, first-appearance order")
	assert.Empty(t, VarsInText(`"no vars here"`))
}

func TestIsConcatExpr(t *testing.T) {
	assert.True(t, IsConcatExpr(`"https://" . $host`))
	assert.True(t, IsConcatExpr(`$a.$b`))
	assert.False(t, IsConcatExpr(`$row['key']`))
	assert.False(t, IsConcatExpr(`1.5`))
	assert.False(t, IsConcatExpr(`"a.b"`))
	assert.False(t, IsConcatExpr(`f($a . $b)`), "concat inside a call is the call's concern")
}

func TestVars_AssignmentDescendsIntoExpression(t *testing.T) {
	n := ParseLine("a.php", 1, `$url = "https://" . $host;`)
	require.NotNil(t, n)
	assert.Equal(t, []string{"$host"}, n.Vars(), "target itself is not a referenced variable")
}

// FuzzParseLine asserts the parser is total: arbitrary input may produce no
// node, never a panic, and any node it does produce is well-formed.
func FuzzParseLine(f *testing.F) {
	f.Add(`$host = $_SERVER['HTTP_HOST'];`)
	f.Add(`redirect($url);`)
	f.Add(`$request->getHost();`)
	f.Add(`URL::to($path);`)
	f.Add(`// comment`)
	f.Add(`$a = "unterminated`)
	f.Add(`((((`)

	f.Fuzz(func(t *testing.T, line string) {
		n := ParseLine("fuzz.php", 1, line)
		if n == nil {
			return
		}
		if n.Raw == "" {
			t.Fatalf("node with empty raw text from %q", line)
		}
		if n.Kind == KindAssignment && n.Expr == nil {
			t.Fatalf("assignment without expression from %q", line)
		}
		for _, v := range n.Vars() {
			if !strings.HasPrefix(v, "$") {
				t.Fatalf("variable %q without sigil from %q", v, line)
			}
		}
	})
}

// FuzzParseFile drives whole-file parsing with generated multi-line content.
func FuzzParseFile(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		content, err := fuzzConsumer.GetString()
		if err != nil {
			return
		}
		nodes := ParseFile("fuzz.php", content)
		last := 0
		for _, n := range nodes {
			if n.Line <= last {
				t.Fatalf("nodes out of line order: %d after %d", n.Line, last)
			}
			last = n.Line
		}
	})
}
