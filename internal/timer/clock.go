package timer

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Clock supplies the instants the timer subtracts to compute durations.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the real time. Values returned by time.Now carry a
// monotonic reading, so subtracting two of them is immune to wall clock
// adjustments.
type SystemClock struct{}

// Now returns the current time with its monotonic component.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// IDGenerator produces run identifiers.
type IDGenerator interface {
	Generate() string
}

// UUIDGenerator generates 32-character lowercase hex run identifiers.
// Prefix lookup over stored runs relies on this fixed-width hex form.
type UUIDGenerator struct{}

// Generate returns a new random identifier.
// Panics if UUID generation fails (should never happen in practice).
func (UUIDGenerator) Generate() string {
	return strings.ReplaceAll(uuid.Must(uuid.NewRandom()).String(), "-", "")
}
