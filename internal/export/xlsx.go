package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

// StepsSheet is the worksheet holding the step table.
const StepsSheet = "Steps"

const thumbnailScale = 0.25

// XLSX builds a workbook with one row per step and the screenshot embedded
// as a thumbnail next to it.
func XLSX(planName string, steps []api.Step) ([]byte, error) {
	if len(steps) == 0 {
		return nil, api.ErrNoSteps
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", StepsSheet); err != nil {
		return nil, err
	}
	if err := f.SetDocProps(&excelize.DocProperties{Title: PlanName(planName)}); err != nil {
		return nil, err
	}

	header := []any{"StepNumber", "EventType", "ElementDescription", "Screenshot"}
	if err := f.SetSheetRow(StepsSheet, "A1", &header); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(StepsSheet, "B", "C", 30); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(StepsSheet, "D", "D", 60); err != nil {
		return nil, err
	}

	for i, s := range steps {
		row := i + 2
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		values := []any{s.StepNumber, orDefault(s.EventType, NoEventType), orDefault(s.ElementDescription, NoDescription)}
		if err := f.SetSheetRow(StepsSheet, cell, &values); err != nil {
			return nil, err
		}

		if s.Screenshot == nil || s.Screenshot.IsZero() {
			continue
		}
		data, err := asPNG(*s.Screenshot)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", s.StepNumber, err)
		}
		picCell, _ := excelize.CoordinatesToCellName(4, row)
		if err := f.AddPictureFromBytes(StepsSheet, picCell, &excelize.Picture{
			Extension: ".png",
			File:      data,
			Format: &excelize.GraphicOptions{
				AltText: ScreenshotName(s),
				ScaleX:  thumbnailScale,
				ScaleY:  thumbnailScale,
			},
		}); err != nil {
			return nil, fmt.Errorf("step %d: %w", s.StepNumber, err)
		}
		if err := f.SetRowHeight(StepsSheet, row, 120); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
