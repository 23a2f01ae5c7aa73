// utils/safelog.go
// ============================================================================
// SAFE LOGGING - masks personal data in production
// ============================================================================
// Tonight is a social app: log lines routinely carry user ids, display
// names, chat content and contact details. In production these are
// masked before they reach the log sink.
// ============================================================================

package utils

import (
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
)

var (
	// IsProduction enables masking.
	IsProduction = os.Getenv("GIN_MODE") == "release" ||
		os.Getenv("ENVIRONMENT") == "production" ||
		os.Getenv("ENV") == "production"

	// LogLevel filters Safe* helpers (DEBUG, INFO, WARN, ERROR).
	LogLevel = getLogLevel()
)

const (
	LogLevelDebug = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func getLogLevel() int {
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		return LogLevelDebug
	case "WARN", "WARNING":
		return LogLevelWarn
	case "ERROR":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	phoneRegex = regexp.MustCompile(`(\+\d{1,3}[\s.-]?)?\(?\d{2,4}\)?[\s.-]?\d{2,4}[\s.-]?\d{2,4}[\s.-]?\d{0,4}`)

	uuidRegex = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

	// Bearer tokens in dumped headers or socket URLs.
	tokenRegex = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._-]+`)
)

// MaskString masks emails, phone numbers, tokens and full UUIDs.
func MaskString(input string) string {
	if !IsProduction {
		return input
	}

	result := emailRegex.ReplaceAllString(input, "***@***.***")
	result = tokenRegex.ReplaceAllString(result, "Bearer ***")
	result = phoneRegex.ReplaceAllString(result, "***")
	result = uuidRegex.ReplaceAllStringFunc(result, func(id string) string {
		return id[:8] + "..."
	})
	return result
}

// MaskID keeps the first 8 characters of an id.
func MaskID(id string) string {
	if !IsProduction {
		return id
	}
	if len(id) <= 8 {
		return "***"
	}
	return id[:8] + "..."
}

// MaskMessage hides chat / announcement content entirely in production,
// keeping only the length for debugging.
func MaskMessage(content string) string {
	if !IsProduction {
		return content
	}
	return fmt.Sprintf("<%d chars>", len(content))
}

func SafeDebug(format string, args ...interface{}) {
	if LogLevel > LogLevelDebug {
		return
	}
	log.Printf("[DEBUG] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeInfo(format string, args ...interface{}) {
	if LogLevel > LogLevelInfo {
		return
	}
	log.Printf("[INFO] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeWarn(format string, args ...interface{}) {
	if LogLevel > LogLevelWarn {
		return
	}
	log.Printf("[WARN] %s", MaskString(fmt.Sprintf(format, args...)))
}

func SafeError(format string, args ...interface{}) {
	log.Printf("[ERROR] %s", MaskString(fmt.Sprintf(format, args...)))
}

// LogDecision logs a join-request decision.
func LogDecision(requestID, status string) {
	log.Printf("[Roster] decision %s - Request: %s", status, MaskID(requestID))
}

// LogDispatch logs a batch invite outcome.
func LogDispatch(batchID string, sent, skipped, failed int) {
	log.Printf("[Invites] batch %s - sent=%d skipped=%d failed=%d",
		MaskID(batchID), sent, skipped, failed)
}

// LogSocket logs a realtime bridge event.
func LogSocket(action, room string) {
	log.Printf("[Socket] %s - Room: %s", action, MaskID(room))
}

// LogFeed logs a host-activity feed event.
func LogFeed(action, entryID string) {
	log.Printf("[Feed] %s - Entry: %s", action, MaskID(entryID))
}

// GetEnvMode returns the current environment mode.
func GetEnvMode() string {
	if IsProduction {
		return "production"
	}
	return "development"
}

// LogStartup logs application startup information.
func LogStartup(appName, version, port string) {
	log.Printf("🚀 %s v%s starting...", appName, version)
	log.Printf("   Mode: %s", GetEnvMode())
	log.Printf("   Port: %s", port)
	if IsProduction {
		log.Printf("   ⚠️  Production mode: personal data will be masked in logs")
	}
}
