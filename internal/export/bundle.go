package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// DefaultPlanName is used in file names when the stop payload has no name.
const DefaultPlanName = "TestPlan"

// Bundle lists the files written by WriteBundle.
type Bundle struct {
	CSVPath string
	ZIPPath string
}

// PlanName returns name, or DefaultPlanName when it is empty.
func PlanName(name string) string {
	if name == "" {
		return DefaultPlanName
	}
	return name
}

// FileBase turns a plan name into a file name prefix. Path separators are
// replaced so the files stay inside the target directory.
func FileBase(planName string) string {
	r := strings.NewReplacer("/", "_", `\`, "_", "\x00", "_")
	base := r.Replace(PlanName(planName))
	if base == "." || base == ".." {
		return DefaultPlanName
	}
	return base
}

// CSVFileName returns "<plan>_Steps.csv".
func CSVFileName(planName string) string {
	return FileBase(planName) + "_Steps.csv"
}

// ZIPFileName returns "<plan>_Screenshots.zip".
func ZIPFileName(planName string) string {
	return FileBase(planName) + "_Screenshots.zip"
}

// XLSXFileName returns "<plan>_Steps.xlsx".
func XLSXFileName(planName string) string {
	return FileBase(planName) + "_Steps.xlsx"
}

// WriteBundle writes the CSV manifest and screenshot archive for a stopped
// recording into dir. It refuses to write anything for an empty recording.
func WriteBundle(dir, planName string, steps []api.Step) (Bundle, error) {
	if len(steps) == 0 {
		return Bundle{}, api.ErrNoSteps
	}

	archive, err := ZIP(steps)
	if err != nil {
		return Bundle{}, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Bundle{}, err
	}

	b := Bundle{
		CSVPath: filepath.Join(dir, CSVFileName(planName)),
		ZIPPath: filepath.Join(dir, ZIPFileName(planName)),
	}
	if err := os.WriteFile(b.CSVPath, []byte(CSV(steps)), 0o644); err != nil {
		return Bundle{}, err
	}
	if err := os.WriteFile(b.ZIPPath, archive, 0o644); err != nil {
		return Bundle{}, err
	}
	return b, nil
}

// WriteWorkbook writes "<plan>_Steps.xlsx" into dir and returns its path.
func WriteWorkbook(dir, planName string, steps []api.Step) (string, error) {
	data, err := XLSX(planName, steps)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, XLSXFileName(planName))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
