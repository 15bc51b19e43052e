package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_FiltersAndOrdering(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "index.php", "<?php echo 1;")
	writeFile(t, root, "views/page.phtml", "<?php echo 2;")
	writeFile(t, root, "views/home.blade.php", "{{ $host }}")
	writeFile(t, root, "README.md", "not php")
	writeFile(t, root, "vendor/lib/lib.php", "<?php // dependency code")
	writeFile(t, root, "node_modules/x/y.php", "<?php")
	writeFile(t, root, ".git/hooks/sample.php", "<?php")

	res, err := Load(context.Background(), root, 4)
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)

	var paths []string
	for _, f := range res.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"index.php", "views/home.blade.php", "views/page.phtml"}, paths)
	assert.Equal(t, "<?php echo 1;", res.Files[0].Content)
}

func TestLoad_UnreadableFileIsSkippedNotFatal(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	root := t.TempDir()
	writeFile(t, root, "ok.php", "<?php")
	writeFile(t, root, "locked.php", "<?php")
	require.NoError(t, os.Chmod(filepath.Join(root, "locked.php"), 0o000))

	res, err := Load(context.Background(), root, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Files, 1)
	assert.Equal(t, "ok.php", res.Files[0].Path)
}

func TestLoad_EmptyTree(t *testing.T) {
	res, err := Load(context.Background(), t.TempDir(), 8)
	require.NoError(t, err)
	assert.Empty(t, res.Files)
	assert.Zero(t, res.Skipped)
}

func TestLoad_CancelledContext(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, root, filepath.Join("src", string(rune('a'+i))+".php"), "<?php")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, root, 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestIsAnalyzable(t *testing.T) {
	assert.True(t, isAnalyzable("a.PHP"))
	assert.True(t, isAnalyzable("view.blade.php"))
	assert.True(t, isAnalyzable("legacy.inc"))
	assert.False(t, isAnalyzable("style.css"))
	assert.False(t, isAnalyzable("php"))
}
