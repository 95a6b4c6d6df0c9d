// Package paths provides the standardized on-device filesystem layout.
//
// Apps install under apps/, preinstalled apps live under builtin/, and
// per-app data under data/. The layout is rooted at a configurable base
// directory so tests and desktop builds can relocate it.
package paths

import (
	"fmt"
	"path/filepath"
)

// Directory names under the root
const (
	AppsDirName    = "apps"
	BuiltinDirName = "builtin"
	DataDirName    = "data"
	PrefsDirName   = "prefs"
	TmpDirName     = "tmp"
	CacheDirName   = "cache"
)

// Layout resolves paths under a root directory.
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at the given directory.
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// Apps returns the directory holding installed app packages.
func (l Layout) Apps() string {
	return filepath.Join(l.Root, AppsDirName)
}

// Builtin returns the directory holding preinstalled app packages.
func (l Layout) Builtin() string {
	return filepath.Join(l.Root, BuiltinDirName)
}

// Prefs returns the directory holding preference stores.
func (l Layout) Prefs() string {
	return filepath.Join(l.Root, PrefsDirName)
}

// Tmp returns the scratch directory for downloads and extraction.
func (l Layout) Tmp() string {
	return filepath.Join(l.Root, TmpDirName)
}

// Cache returns the cache directory.
func (l Layout) Cache() string {
	return filepath.Join(l.Root, CacheDirName)
}

// AppDir returns the install directory of a specific app.
func (l Layout) AppDir(appID string) string {
	return filepath.Join(l.Apps(), appID)
}

// AppDataDir returns the data directory of a specific app.
func (l Layout) AppDataDir(appID string) string {
	return filepath.Join(l.Root, DataDirName, appID)
}

// StandardDirectories returns all directories that should exist under the root.
func (l Layout) StandardDirectories() []string {
	return []string{
		l.Apps(),
		l.Builtin(),
		filepath.Join(l.Root, DataDirName),
		l.Prefs(),
		l.Tmp(),
		l.Cache(),
	}
}

// ValidateAppID checks if an app ID is safe for path construction.
// IDs are reverse-DNS names ("com.example.camera"), so dots are legal,
// but an ID must never resolve outside its own directory.
func ValidateAppID(appID string) error {
	if appID == "" {
		return fmt.Errorf("app ID cannot be empty")
	}
	if appID == "." || appID == ".." {
		return fmt.Errorf("app ID contains invalid path components")
	}
	if filepath.IsAbs(appID) {
		return fmt.Errorf("app ID cannot be an absolute path")
	}
	if filepath.Clean(appID) != appID {
		return fmt.Errorf("app ID contains invalid path components")
	}
	for _, r := range appID {
		if r == '/' || r == '\\' {
			return fmt.Errorf("app ID cannot contain path separators")
		}
	}
	return nil
}
