package api

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDataURL(t *testing.T) {
	img, err := ParseDataURL("data:image/jpeg;base64,AQID")
	require.NoError(t, err)
	require.Equal(t, MIMEJPEG, img.MIMEType)
	require.Equal(t, []byte{1, 2, 3}, img.Data)
	require.Equal(t, "data:image/jpeg;base64,AQID", img.DataURL())
}

func TestParseDataURL_Rejects(t *testing.T) {
	cases := map[string]string{
		"no scheme":   "image/png;base64,AQID",
		"not base64":  "data:image/png,AQID",
		"bad payload": "data:image/png;base64,!!!",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDataURL(in)
			require.True(t, errors.Is(err, ErrInvalidDataURL), "got %v", err)
		})
	}
}

func TestStepJSON_ScreenshotAsDataURL(t *testing.T) {
	shot := NewPNG([]byte{0x89, 'P', 'N', 'G'})
	step := Step{StepNumber: 1, EventType: EventLeftClick, ElementDescription: "Submit", Screenshot: &shot}

	b, err := json.Marshal(step)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"stepNumber":1,"eventType":"Left Click","elementDescription":"Submit","screenshot":"data:image/png;base64,iVBORw=="}`,
		string(b))

	var back Step
	require.NoError(t, json.Unmarshal(b, &back))
	require.NotNil(t, back.Screenshot)
	require.True(t, back.Screenshot.Equal(shot))

	b, err = json.Marshal(Step{StepNumber: 2})
	require.NoError(t, err)
	require.NotContains(t, string(b), "screenshot")
}

func TestNormalizePlanName(t *testing.T) {
	require.Equal(t, DefaultTestPlanName, NormalizePlanName(""))
	require.Equal(t, DefaultTestPlanName, NormalizePlanName(" \t\n"))
	require.Equal(t, "  Login Flow ", NormalizePlanName("  Login Flow "))
}

func TestStateReply_FlagsFollowPhase(t *testing.T) {
	cases := []struct {
		phase     Phase
		recording bool
		paused    bool
	}{
		{PhaseIdle, false, false},
		{PhaseRecording, true, false},
		{PhasePaused, true, true},
		{PhaseStopped, false, false},
	}
	for _, tc := range cases {
		r := NewStateReply(State{Phase: tc.phase})
		require.Equal(t, tc.recording, r.IsRecording, tc.phase)
		require.Equal(t, tc.paused, r.IsPaused, tc.phase)
		require.NotNil(t, r.Steps)
	}
}
