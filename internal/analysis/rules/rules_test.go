package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/hnpscan-cli/api/schemas"
)

func TestBuiltinPacksCompile(t *testing.T) {
	for _, name := range Frameworks() {
		t.Run(name, func(t *testing.T) {
			set, err := ForFramework(name)
			require.NoError(t, err)
			assert.Equal(t, name, set.Framework)
		})
	}
}

func TestForFramework_Unknown(t *testing.T) {
	_, err := ForFramework("django")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no built-in rules")
}

func TestMatchSource_Generic(t *testing.T) {
	set, err := ForFramework("generic")
	require.NoError(t, err)

	cases := []struct {
		name string
		raw  string
		kind schemas.SourceKind
		conf float64
	}{
		{"superglobal host", `$host = $_SERVER['HTTP_HOST'];`, schemas.SourceHostHeader, 1.0},
		{"superglobal server name", `$name = $_SERVER["SERVER_NAME"];`, schemas.SourceServerName, 1.0},
		{"accessor method", `$host = $request->getHost();`, schemas.SourceHostAccessor, 0.9},
		{"scheme and host", `$base = $req->getSchemeAndHttpHost();`, schemas.SourceHostAccessor, 0.9},
		{"forwarded header", `$h = $_SERVER['HTTP_X_FORWARDED_HOST'];`, schemas.SourceForwardedHost, 0.8},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, conf, ok := set.MatchSource(tc.raw)
			require.True(t, ok)
			assert.Equal(t, tc.kind, kind)
			assert.InDelta(t, tc.conf, conf, 1e-9)
		})
	}

	_, _, ok := set.MatchSource(`$x = $_GET['q'];`)
	assert.False(t, ok, "request parameters are not host sources")
}

func TestMatchSink_KindPrecedence(t *testing.T) {
	set, err := ForFramework("generic")
	require.NoError(t, err)

	kind, ok := set.MatchSink(`wp_login_url($redirect)`)
	require.True(t, ok)
	assert.Equal(t, schemas.SinkAuthentication, kind, "auth sinks classify before url_generation")

	kind, ok = set.MatchSink(`header("Location: https://" . $host)`)
	require.True(t, ok)
	assert.Equal(t, schemas.SinkRedirect, kind)

	kind, ok = set.MatchSink(`header("X-Custom: " . $host)`)
	require.True(t, ok)
	assert.Equal(t, schemas.SinkResponseHeader, kind)

	_, ok = set.MatchSink(`strlen($host)`)
	assert.False(t, ok)
}

func TestFrameworkPacksLayerOverGeneric(t *testing.T) {
	wp, err := ForFramework("wordpress")
	require.NoError(t, err)

	// Framework-specific sink.
	kind, ok := wp.MatchSink(`wp_safe_redirect($url)`)
	require.True(t, ok)
	assert.Equal(t, schemas.SinkRedirect, kind)

	// Generic source still matches inside the framework pack.
	_, _, ok = wp.MatchSource(`$h = $_SERVER['HTTP_HOST'];`)
	assert.True(t, ok)

	assert.True(t, wp.HasGuard(`$allowed = allowed_redirect_hosts();`))
}

func TestHasGuardAndValidation(t *testing.T) {
	set, err := ForFramework("generic")
	require.NoError(t, err)

	assert.True(t, set.HasGuard("framework:\n  trusted_hosts: ['example.com']\n"))
	assert.True(t, set.HasGuard(`Request::setTrustedProxies($proxies, $bits);`))
	assert.False(t, set.HasGuard(`$host = $_SERVER['HTTP_HOST'];`))

	assert.True(t, set.HasValidation(`$clean = filter_var($host, FILTER_VALIDATE_DOMAIN);`))
	assert.True(t, set.HasValidation(`$safe = htmlspecialchars($host);`))
	assert.False(t, set.HasValidation(`$url = "https://" . $host;`))
}

func TestFunctionRule(t *testing.T) {
	set, err := ForFramework("generic")
	require.NoError(t, err)

	r := set.FunctionRule("home_url")
	assert.Equal(t, PolicyPreserving, r.Policy)
	assert.InDelta(t, 0.9, r.Weight, 1e-9)

	r = set.FunctionRule("HTMLSpecialChars")
	assert.Equal(t, PolicyRemoving, r.Policy, "lookup is case-insensitive")
	assert.Zero(t, r.Weight)

	r = set.FunctionRule("some_custom_helper")
	assert.Equal(t, PolicyUnknown, r.Policy)
	assert.InDelta(t, defaultUnknownWeight, r.Weight, 1e-9)

	set.SetUnknownWeight(0.25)
	assert.InDelta(t, 0.25, set.FunctionRule("other_helper").Weight, 1e-9)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	content := `
framework: custom
sources:
  - kind: http_host
    pattern: 'env\s*\(\s*[''"]HTTP_HOST'
    confidence: 0.85
sinks:
  - kind: redirect
    pattern: 'send_redirect\s*\('
guards:
  - 'host_allowlist'
validations:
  - 'check_host\s*\('
functions:
  clean_host:
    policy: removing
    weight: 0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	set, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "custom", set.Framework)

	kind, conf, ok := set.MatchSource(`$h = env('HTTP_HOST');`)
	require.True(t, ok)
	assert.Equal(t, schemas.SourceHostHeader, kind)
	assert.InDelta(t, 0.85, conf, 1e-9)

	_, ok = set.MatchSink(`send_redirect($url)`)
	assert.True(t, ok)
	assert.True(t, set.HasGuard("host_allowlist = ..."))
	assert.Equal(t, PolicyRemoving, set.FunctionRule("clean_host").Policy)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("framework: x\nsources:\n  - kind: http_host\n    pattern: '['\n"), 0o644))
	_, err = LoadFile(bad)
	require.Error(t, err)

	nofw := filepath.Join(dir, "nofw.yaml")
	require.NoError(t, os.WriteFile(nofw, []byte("sinks: []\n"), 0o644))
	_, err = LoadFile(nofw)
	require.Error(t, err)
}
