package apps

import (
	"path/filepath"
	"time"
)

// Source tells where an installed package came from.
type Source string

const (
	// SourceBuiltin marks packages shipped with the firmware image.
	SourceBuiltin Source = "builtin"
	// SourceInstalled marks packages installed by the user.
	SourceInstalled Source = "installed"
)

// App is an app package present on disk.
type App struct {
	Manifest    Manifest
	Dir         string // install directory holding the manifest and scripts
	Source      Source
	Hash        string // deterministic id+version hash
	InstalledAt time.Time
}

// ID returns the package identifier from the manifest.
func (a *App) ID() string {
	return a.Manifest.ID
}

// EntryPath returns the absolute path of the package's entry script.
func (a *App) EntryPath() string {
	return filepath.Join(a.Dir, a.Manifest.Entry)
}

// IconPath returns the absolute path of the package icon, or "" when
// the manifest declares none.
func (a *App) IconPath() string {
	if a.Manifest.Icon == "" {
		return ""
	}
	return filepath.Join(a.Dir, a.Manifest.Icon)
}
