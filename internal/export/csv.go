// Package export turns a stopped recording into files: a CSV manifest, a ZIP
// of step screenshots, and an XLSX workbook.
package export

import (
	"strconv"
	"strings"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// CSVHeader is the first line of every manifest.
const CSVHeader = "StepNumber,EventType,ElementDescription\n"

// Placeholders for absent fields.
const (
	NoEventType   = "NoEventType"
	NoDescription = "NoDescription"
)

// CSV renders the step manifest. Text fields are always quoted with
// embedded quotes doubled; a missing step number leaves its column empty.
func CSV(steps []api.Step) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	for _, s := range steps {
		if s.StepNumber != 0 {
			b.WriteString(strconv.Itoa(s.StepNumber))
		}
		b.WriteString(`,"`)
		b.WriteString(quote(s.EventType, NoEventType))
		b.WriteString(`","`)
		b.WriteString(quote(s.ElementDescription, NoDescription))
		b.WriteString("\"\n")
	}
	return b.String()
}

func quote(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return strings.ReplaceAll(s, `"`, `""`)
}
