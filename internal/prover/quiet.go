package prover

import (
	"io"
	"sync"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

var (
	quietMu    sync.Mutex
	quietDepth int
	quietSaved zerolog.Logger
)

// silenceGnark disables gnark's global logger until the returned function is
// called. Nested and concurrent calls share one silenced period.
func silenceGnark() func() {
	quietMu.Lock()
	defer quietMu.Unlock()

	if quietDepth == 0 {
		quietSaved = gnarklogger.Logger()
		gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
	}
	quietDepth++

	return func() {
		quietMu.Lock()
		defer quietMu.Unlock()
		quietDepth--
		if quietDepth == 0 {
			gnarklogger.Set(quietSaved)
		}
	}
}
