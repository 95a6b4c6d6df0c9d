package apps

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/MicroPythonOS/shell/internal/infrastructure/logging"
	"github.com/MicroPythonOS/shell/internal/shared/paths"
	"github.com/MicroPythonOS/shell/internal/shared/utils"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"
)

// PackageExt is the installable archive extension.
const PackageExt = ".mpk"

// Installer errors.
var (
	ErrBadPackage       = errors.New("invalid package")
	ErrChecksumMismatch = errors.New("package checksum mismatch")
	ErrBuiltinApp       = errors.New("builtin packages cannot be uninstalled")
)

// Installer unpacks .mpk archives into the apps directory. An .mpk is
// a zip with a manifest at its root.
type Installer struct {
	layout paths.Layout
	logger *logging.Logger
	hasher *utils.Hasher
	ident  *utils.PackageIdentifier
}

// NewInstaller creates an installer over the standard layout.
func NewInstaller(layout paths.Layout, logger *logging.Logger) *Installer {
	hasher := utils.DefaultHasher()
	return &Installer{
		layout: layout,
		logger: logger.Named("installer"),
		hasher: hasher,
		ident:  utils.NewPackageIdentifier(hasher),
	}
}

// Install verifies and unpacks an archive, returning the installed
// package. A non-empty checksum must match the archive's SHA-256. Any
// existing install of the same ID is replaced. The archive is staged
// into the tmp directory and swapped into place with a rename, so a
// failed install never leaves a half-written package behind.
func (i *Installer) Install(archive, checksum string) (*App, error) {
	if checksum != "" {
		sum, err := i.hasher.HashFile(archive)
		if err != nil {
			return nil, fmt.Errorf("failed to checksum package: %w", err)
		}
		if !strings.EqualFold(sum, checksum) {
			return nil, fmt.Errorf("%w: archive hashes to %s", ErrChecksumMismatch, sum[:12])
		}
	}

	reader, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPackage, err)
	}
	defer reader.Close()

	manifest, err := readManifest(&reader.Reader)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(i.layout.Tmp(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare staging area: %w", err)
	}
	staging, err := os.MkdirTemp(i.layout.Tmp(), manifest.ID+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to prepare staging area: %w", err)
	}
	defer os.RemoveAll(staging)

	if err := extract(&reader.Reader, staging); err != nil {
		return nil, err
	}

	for _, decl := range manifest.Activities {
		if _, err := os.Stat(filepath.Join(staging, decl.Entry)); err != nil {
			return nil, fmt.Errorf("%w: entry script %s missing", ErrBadPackage, decl.Entry)
		}
	}
	if manifest.Icon != "" {
		i.checkIcon(manifest.ID, filepath.Join(staging, manifest.Icon))
	}

	dest := i.layout.AppDir(manifest.ID)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return nil, fmt.Errorf("failed to prepare apps directory: %w", err)
	}
	if err := os.RemoveAll(dest); err != nil {
		return nil, fmt.Errorf("failed to replace existing install: %w", err)
	}
	if err := os.Rename(staging, dest); err != nil {
		return nil, fmt.Errorf("failed to move package into place: %w", err)
	}

	i.logger.Info("Package unpacked",
		zap.String("app_id", manifest.ID),
		zap.String("version", manifest.Version))

	return &App{
		Manifest:    *manifest,
		Dir:         dest,
		Source:      SourceInstalled,
		Hash:        i.ident.GenerateHash(manifest.ID, manifest.Version),
		InstalledAt: time.Now(),
	}, nil
}

// Uninstall deletes a package's install directory. Builtin packages
// are refused.
func (i *Installer) Uninstall(app *App) error {
	if app.Source == SourceBuiltin {
		return ErrBuiltinApp
	}
	if err := paths.ValidateAppID(app.ID()); err != nil {
		return err
	}
	if err := os.RemoveAll(app.Dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", app.ID(), err)
	}
	return nil
}

// checkIcon warns when the declared icon is missing or not an image.
// Installation proceeds either way; a launcher can fall back to a
// default glyph.
func (i *Installer) checkIcon(appID, path string) {
	mtype, err := mimetype.DetectFile(path)
	switch {
	case err != nil:
		i.logger.Warn("Package icon unreadable",
			zap.String("app_id", appID),
			zap.Error(err))
	case !strings.HasPrefix(mtype.String(), "image/"):
		i.logger.Warn("Package icon is not an image",
			zap.String("app_id", appID),
			zap.String("detected", mtype.String()))
	}
}

// readManifest locates and parses the manifest at the archive root.
func readManifest(zr *zip.Reader) (*Manifest, error) {
	for _, name := range ManifestNames {
		for _, f := range zr.File {
			if f.Name != name {
				continue
			}
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPackage, err)
			}
			data, err := io.ReadAll(io.LimitReader(rc, utils.MaxManifestSize+1))
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPackage, err)
			}
			m, err := ParseManifest(data, name)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrBadPackage, err)
			}
			return m, nil
		}
	}
	return nil, fmt.Errorf("%w: no manifest at archive root", ErrBadPackage)
}

// extract unpacks every archive entry under dest. Entries that would
// escape dest fail the whole install.
func extract(zr *zip.Reader, dest string) error {
	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range zr.File {
		target := filepath.Join(dest, filepath.FromSlash(f.Name))
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("%w: entry %q escapes the package root", ErrBadPackage, f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to extract %s: %w", f.Name, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		src, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
		if err != nil {
			src.Close()
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		_, err = io.Copy(dst, src)
		src.Close()
		dst.Close()
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
	}
	return nil
}

// Pack builds an .mpk archive from a package directory and returns
// its SHA-256. Entries are written in sorted order so repeated packs
// of the same tree produce identical archives. Used by tests and the
// packaging tool.
func Pack(dir, output string) (string, error) {
	var (
		mu    sync.Mutex
		files []string
	)
	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		mu.Lock()
		files = append(files, path)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	out, err := os.Create(output)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			zw.Close()
			return "", fmt.Errorf("failed to pack %s: %w", path, err)
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			zw.Close()
			return "", fmt.Errorf("failed to pack %s: %w", rel, err)
		}
		f, err := os.Open(path)
		if err != nil {
			zw.Close()
			return "", fmt.Errorf("failed to pack %s: %w", rel, err)
		}
		_, err = io.Copy(w, f)
		f.Close()
		if err != nil {
			zw.Close()
			return "", fmt.Errorf("failed to pack %s: %w", rel, err)
		}
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to finish archive: %w", err)
	}

	return utils.DefaultHasher().HashFile(output)
}
