package upatch

import (
	"fmt"
	"io"
	"strings"
)

// Apply applies the unified diff read from patch using config. Hunks that
// do not apply are reported in the Result; a non-nil error means the run
// was stopped by a file system problem. Start from DefaultConfig: its zero
// value strips nothing and allows no fuzz.
func Apply(patch io.Reader, config Config) (Result, error) {
	app, err := NewApp(&config)
	if err != nil {
		return Result{}, fmt.Errorf("failed to initialize upatch app: %w", err)
	}
	return app.ApplyPatch(patch)
}

// ApplyString is Apply for a patch held in memory.
func ApplyString(patch string, config Config) (Summary, error) {
	res, err := Apply(strings.NewReader(patch), config)
	if err != nil {
		return Summary{}, err
	}
	return SummaryOf(res), nil
}
