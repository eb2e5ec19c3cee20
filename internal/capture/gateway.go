// Package capture buffers the per-frame status of a scene run and persists it
// once the run is over.
package capture

import (
	"github.com/AaronLay10/IntPhysDirector/internal/storage/postgres"
)

// Gateway is the persistence boundary of the scenes and the director.
type Gateway interface {
	// SetHeader records the static status of the run. The camera status is
	// added by the gateway.
	SetHeader(header map[string]interface{})
	// Capture buffers one frame. Ignored actors are left out of the masks.
	Capture(ignored []string, status map[string]interface{})
	// Reset drops the buffered frames and header. With clearDisk, the
	// output of a failed Save is removed as well.
	Reset(clearDisk bool)
	// Save writes the buffered run to subdir, relative to the output
	// directory. It reports false on failure.
	Save(subdir string) bool
	// ShufflePossibleImpossible randomizes the run subdirectories of every
	// scene of a test dataset.
	ShufflePossibleImpossible(dataset string) error
	IsDryMode() bool
	OutputDir() string
}

// StatusProvider is the camera as seen by the gateway.
type StatusProvider interface {
	Status() map[string]interface{}
}

// Ledger records saved runs. *postgres.Client implements it.
type Ledger interface {
	RecordRun(r postgres.RunRow) error
}
