package app

import (
	"os"
	"strconv"
	"sync"
)

// TestModeEnv makes both binaries return before touching Postgres or Redis.
const TestModeEnv = "DAWA_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	on, _ := strconv.ParseBool(os.Getenv(TestModeEnv))
	return on
})

// InTestMode reports whether DAWA_TEST_MODE was set to a true value at first use.
func InTestMode() bool {
	return testMode()
}
