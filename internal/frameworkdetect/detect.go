// Package frameworkdetect guesses which PHP framework a source tree belongs
// to so the engine can pick the matching rules pack. Detection is
// marker-file based and deliberately cheap; "generic" is always a safe
// answer.
package frameworkdetect

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/xkilldash9x/hnpscan-cli/internal/observability"
)

// Generic is the fallback identifier when no framework markers are found.
const Generic = "generic"

// marker is one detection rule: the framework wins if any of its paths
// exists under the scan root, checked in declaration order so the more
// distinctive frameworks are tried before the ambiguous ones.
type marker struct {
	framework string
	paths     []string
}

var markers = []marker{
	{"wordpress", []string{"wp-config.php", "wp-includes", "wp-admin", "wp-load.php"}},
	{"laravel", []string{"artisan", filepath.Join("app", "Http", "Kernel.php"), filepath.Join("bootstrap", "app.php")}},
	{"symfony", []string{filepath.Join("config", "packages"), filepath.Join("bin", "console"), "symfony.lock"}},
	{"codeigniter", []string{"spark", filepath.Join("system", "CodeIgniter.php"), filepath.Join("system", "core", "CodeIgniter.php")}},
	{"cakephp", []string{filepath.Join("config", "app.php"), filepath.Join("lib", "Cake"), filepath.Join("bin", "cake")}},
	{"yii2", []string{"yii", filepath.Join("config", "web.php"), "yii.php"}},
}

// Detect inspects root and returns a rules-pack identifier. It never fails:
// an unreadable or unrecognized tree detects as generic.
func Detect(root string) string {
	logger := observability.GetLogger().Named("frameworkdetect")
	for _, m := range markers {
		for _, p := range m.paths {
			if _, err := os.Stat(filepath.Join(root, p)); err == nil {
				logger.Info("framework detected",
					zap.String("framework", m.framework),
					zap.String("marker", p))
				return m.framework
			}
		}
	}
	logger.Info("no framework markers found, using generic rules")
	return Generic
}
