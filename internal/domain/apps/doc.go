// Package apps manages installable app packages.
//
// An app package (.mpk) is a zip archive holding a manifest and the
// scripts implementing its activities. Packages live one directory
// per app under the apps/ and builtin/ layout directories.
//
// Components:
//   - Manifest: package metadata in JSON, YAML, or TOML
//   - Scanner: parallel discovery walk over the package directories
//   - Installer: checksum-verified archive extraction with staging
//   - Store: HTTP catalog client with retrying transport
//   - Watcher: debounced filesystem watch driving hot rescans
//   - Manager: the installed table and registry seeding
//
// Features:
//   - Idempotent rescans: add, change, or delete packages on disk and
//     the registry follows
//   - Installed packages shadow builtins with the same ID
//   - Zip-slip protection and size-limited manifests
//   - SHA-256 verification for local installs and store downloads
//
// Example Usage:
//
//	mgr := apps.NewManager(layout, registry, factory, logger)
//	if err := mgr.Scan(); err != nil { ... }
//	stop, err := mgr.Watch(apps.DefaultDebounce)
//	defer stop()
package apps
