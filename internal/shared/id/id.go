// Package id provides ULID generation for the shell's runtime objects.
//
// Launches, activity instances and surfaces all get prefixed ULIDs
// (launch_*, act_*, surf_*), so a grep through the logs follows one
// launch end to end, and IDs sort in creation order without carrying
// timestamps around. Installed packages are the exception: they are
// keyed by their reverse-DNS manifest ID, never by a generated one.
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Typed wrappers keep the different ID kinds from crossing.
type (
	// LaunchID identifies one activity launch and keys the
	// pending-result table.
	LaunchID string

	// ActivityID identifies a live activity instance.
	ActivityID string

	// SurfaceID identifies a render surface.
	SurfaceID string
)

// Prefixes make log lines and API payloads self-describing.
const (
	LaunchPrefix  = "launch"
	ActPrefix     = "act"
	SurfacePrefix = "surf"
)

// Generator mints ULIDs from a guarded entropy source.
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand.
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with a custom entropy
// source. Tests use it for deterministic output.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate mints one ULID.
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString mints one ULID in string form.
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix mints a "prefix_ULID" string.
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewLaunchID mints an ID for one activity launch.
func NewLaunchID() LaunchID {
	return LaunchID(Default().GenerateWithPrefix(LaunchPrefix))
}

// NewActivityID mints an ID for an activity instance.
func NewActivityID() ActivityID {
	return ActivityID(Default().GenerateWithPrefix(ActPrefix))
}

// NewSurfaceID mints an ID for a render surface.
func NewSurfaceID() SurfaceID {
	return SurfaceID(Default().GenerateWithPrefix(SurfacePrefix))
}

func (id LaunchID) String() string   { return string(id) }
func (id ActivityID) String() string { return string(id) }
func (id SurfaceID) String() string  { return string(id) }

// Timestamp recovers the creation time embedded in a bare ULID string.
// Strip the type prefix before calling.
func Timestamp(s string) (time.Time, error) {
	parsed, err := ulid.Parse(s)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
