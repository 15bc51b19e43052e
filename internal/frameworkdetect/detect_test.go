package frameworkdetect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte{}, 0o644))
}

func TestDetect(t *testing.T) {
	cases := []struct {
		framework string
		marker    string
	}{
		{"wordpress", "wp-config.php"},
		{"laravel", "artisan"},
		{"laravel", filepath.Join("app", "Http", "Kernel.php")},
		{"symfony", filepath.Join("bin", "console")},
		{"codeigniter", filepath.Join("system", "CodeIgniter.php")},
		{"cakephp", filepath.Join("bin", "cake")},
		{"yii2", filepath.Join("config", "web.php")},
	}
	for _, tc := range cases {
		t.Run(tc.framework+"/"+tc.marker, func(t *testing.T) {
			root := t.TempDir()
			touch(t, root, tc.marker)
			assert.Equal(t, tc.framework, Detect(root))
		})
	}
}

func TestDetect_Fallbacks(t *testing.T) {
	assert.Equal(t, Generic, Detect(t.TempDir()), "bare tree is generic")
	assert.Equal(t, Generic, Detect(filepath.Join(t.TempDir(), "missing")), "unreadable root is generic")
}

func TestDetect_PrecedenceIsDeterministic(t *testing.T) {
	// A WordPress install vendored inside a Laravel app: the more
	// distinctive markers win in declaration order.
	root := t.TempDir()
	touch(t, root, "wp-config.php")
	touch(t, root, "artisan")
	assert.Equal(t, "wordpress", Detect(root))
}
