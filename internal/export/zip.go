package export

import (
	"archive/zip"
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"regexp"
	"strconv"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

var whitespace = regexp.MustCompile(`\s+`)

// ScreenshotName is the archive entry name for s:
// Step<stepNumber>_<eventTypeWithoutWhitespace>.png. A missing number is
// written as 1 and a missing event type as NoEventType.
func ScreenshotName(s api.Step) string {
	n := s.StepNumber
	if n == 0 {
		n = 1
	}
	eventType := NoEventType
	if s.EventType != "" {
		eventType = whitespace.ReplaceAllString(s.EventType, "")
	}
	return "Step" + strconv.Itoa(n) + "_" + eventType + ".png"
}

// ZIP archives the screenshot of every step that has one. Steps without a
// screenshot are skipped. Non-PNG screenshots are transcoded so every entry
// matches its .png name. When two steps map to the same name the later one
// wins.
func ZIP(steps []api.Step) ([]byte, error) {
	if len(steps) == 0 {
		return nil, api.ErrNoSteps
	}

	var order []string
	entries := make(map[string][]byte)
	for _, s := range steps {
		if s.Screenshot == nil || s.Screenshot.IsZero() {
			continue
		}
		data, err := asPNG(*s.Screenshot)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", s.StepNumber, err)
		}
		name := ScreenshotName(s)
		if _, seen := entries[name]; !seen {
			order = append(order, name)
		}
		entries[name] = data
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(entries[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func asPNG(img api.Image) ([]byte, error) {
	if img.MIMEType == "" || img.MIMEType == api.MIMEPNG {
		return img.Data, nil
	}
	decoded, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return nil, fmt.Errorf("transcode %s: %w", img.MIMEType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
