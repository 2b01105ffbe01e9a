package app

import (
	"os"
	"sync"
)

const testModeEnv = "RISKPOOL_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	v := os.Getenv(testModeEnv)
	return v == "1" || v == "true"
})

// InTestMode reports whether the binaries should skip runtime side effects.
// The flag is read once per process.
func InTestMode() bool {
	return testMode()
}
