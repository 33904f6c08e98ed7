package utils

import (
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	log "github.com/sirupsen/logrus"
)

var Log = logrus.New()

func SetLogLevel(level string) {
	// We are not using logrus' trace and panic levels
	switch strings.ToLower(level) {
	case "debug":
		Log.SetLevel(log.DebugLevel)
	case "info":
		Log.SetLevel(log.InfoLevel)
	case "warning", "warn":
		Log.SetLevel(log.WarnLevel)
	case "error":
		Log.SetLevel(log.ErrorLevel)
	case "fatal":
		Log.SetLevel(log.FatalLevel)
	default:
		log.Fatal("Bad error level string")
	}
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SafeFilename collapses anything that could upset a filesystem into underscores
// and caps the result at 200 characters.
func SafeFilename(name string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_")
	if len(cleaned) > 200 {
		cleaned = cleaned[:200]
	}
	return cleaned
}

// Slug lowercases a name and strips spaces plus generic org words, for use in
// candidate hostnames.
func Slug(name string, stopWords ...string) string {
	s := strings.ToLower(name)
	for _, w := range stopWords {
		s = strings.ReplaceAll(s, w, "")
	}
	return strings.ReplaceAll(s, " ", "")
}

func AreSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
