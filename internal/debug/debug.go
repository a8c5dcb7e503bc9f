package debug

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// Enabled reports whether DEBUG is switched on in the environment
func Enabled() bool {
	switch strings.ToLower(os.Getenv("DEBUG")) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// DebugHeader prints a stage header if debugging is enabled
func DebugHeader(enabled bool, stage string) {
	if enabled {
		log.Printf("=== %s START ===", strings.ToUpper(stage))
	}
}

// DebugFooter prints a stage footer if debugging is enabled
func DebugFooter(enabled bool, stage string) {
	if enabled {
		log.Printf("=== %s END ===", strings.ToUpper(stage))
	}
}

// DebugOutput prints debug output if debugging is enabled
func DebugOutput(enabled bool, format string, args ...interface{}) {
	if enabled {
		timestamp := time.Now().Format("15:04:05.000")
		message := fmt.Sprintf(format, args...)
		log.Printf("[%s] %s", timestamp, message)
	}
}

// DebugTiming measures and logs execution time if debugging is enabled.
// Call the returned func when the operation completes.
func DebugTiming(enabled bool, operation string) func() {
	if !enabled {
		return func() {}
	}

	start := time.Now()
	DebugOutput(enabled, "Starting: %s", operation)

	return func() {
		DebugOutput(enabled, "Completed: %s (took %v)", operation, time.Since(start))
	}
}

// Warnf always logs, regardless of the debug switch
func Warnf(format string, args ...interface{}) {
	log.Printf("WARN: "+format, args...)
}
