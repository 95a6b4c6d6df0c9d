package apps

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/shared/utils"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"go.uber.org/zap"
)

// manifestPattern matches manifest files exactly one level below the
// scan root, i.e. at each package's root.
const manifestPattern = "*/manifest.{json,yaml,yml,toml}"

// Scanner finds app packages below a directory. Each package is a
// directory with a manifest at its root.
type Scanner struct {
	logger *logging.Logger
	ident  *utils.PackageIdentifier
}

// NewScanner creates a package scanner.
func NewScanner(logger *logging.Logger) *Scanner {
	return &Scanner{
		logger: logger.Named("discovery"),
		ident:  utils.NewPackageIdentifier(nil),
	}
}

// Scan walks root and returns every valid package found, sorted by
// ID. Invalid manifests are logged and skipped; one bad package never
// blocks the rest of the scan. A missing root yields an empty result.
func (s *Scanner) Scan(root string, source Source) []*App {
	var (
		mu    sync.Mutex
		found []*App
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			// Packages are one level deep; don't descend into their
			// asset subdirectories.
			if strings.Count(rel, string(filepath.Separator)) >= 1 {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := doublestar.Match(manifestPattern, filepath.ToSlash(rel)); !ok {
			return nil
		}

		app, loadErr := s.load(path, source)
		if loadErr != nil {
			s.logger.Warn("Skipping invalid package",
				zap.String("manifest", path),
				zap.Error(loadErr))
			return nil
		}

		mu.Lock()
		found = append(found, app)
		mu.Unlock()
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Package scan incomplete", zap.String("root", root), zap.Error(err))
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ID() < found[j].ID() })
	return found
}

// load parses one manifest and checks the package's declared scripts
// actually exist.
func (s *Scanner) load(manifestPath string, source Source) (*App, error) {
	m, err := ParseManifestFile(manifestPath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(manifestPath)
	for _, decl := range m.Activities {
		if _, err := os.Stat(filepath.Join(dir, decl.Entry)); err != nil {
			return nil, err
		}
	}

	installedAt := time.Now()
	if info, err := os.Stat(dir); err == nil {
		installedAt = info.ModTime()
	}

	return &App{
		Manifest:    *m,
		Dir:         dir,
		Source:      source,
		Hash:        s.ident.GenerateHash(m.ID, m.Version),
		InstalledAt: installedAt,
	}, nil
}
