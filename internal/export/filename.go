package export

import (
	"regexp"
	"time"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// SanitizeName replaces every character outside [A-Za-z0-9] with '_'
func SanitizeName(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Filename returns <SanitizedPlantName>_Health_Report_<YYYY-MM-DD>.pdf
func Filename(plantName string, at time.Time) string {
	return SanitizeName(plantName) + "_Health_Report_" + at.Format("2006-01-02") + ".pdf"
}
