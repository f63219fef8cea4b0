package capture

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
)

type fakeRequester struct {
	reply api.Message
	err   error
	got   []api.Message
}

func (f *fakeRequester) Request(ctx context.Context, msg api.Message) (api.Message, error) {
	f.got = append(f.got, msg)
	return f.reply, f.err
}

func TestStatic(t *testing.T) {
	img := api.NewPNG([]byte("png"))
	got, err := Static{Image: img}.CaptureVisible(context.Background())
	require.NoError(t, err)
	require.True(t, got.Equal(img))

	_, err = Static{}.CaptureVisible(context.Background())
	require.ErrorIs(t, err, api.ErrCaptureFailed)
}

func TestCaptureFunc(t *testing.T) {
	boom := errors.New("boom")
	_, err := CaptureFunc(func(ctx context.Context) (api.Image, error) {
		return api.Image{}, boom
	}).CaptureVisible(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestBridge_NotAttached(t *testing.T) {
	b := NewBridge()
	require.False(t, b.Attached())

	_, err := b.CaptureVisible(context.Background())
	require.ErrorIs(t, err, api.ErrCaptureFailed)
}

func TestBridge_ReturnsScreenshot(t *testing.T) {
	img := api.NewPNG([]byte("shot"))
	r := &fakeRequester{reply: api.Message{Type: api.MsgCaptureResult, Screenshot: &img}}

	b := NewBridge()
	b.Attach(r)
	require.True(t, b.Attached())

	got, err := b.CaptureVisible(context.Background())
	require.NoError(t, err)
	require.True(t, got.Equal(img))
	require.Len(t, r.got, 1)
	require.Equal(t, api.MsgCaptureVisibleTab, r.got[0].Type)
}

func TestBridge_Failures(t *testing.T) {
	cases := map[string]*fakeRequester{
		"transport error": {err: errors.New("socket closed")},
		"reported error":  {reply: api.Message{Type: api.MsgCaptureResult, Error: "no active tab"}},
		"empty reply":     {reply: api.Message{Type: api.MsgCaptureResult}},
	}
	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			b := NewBridge()
			b.Attach(r)
			_, err := b.CaptureVisible(context.Background())
			require.ErrorIs(t, err, api.ErrCaptureFailed)
		})
	}
}

func TestBridge_DetachOnlyCurrent(t *testing.T) {
	first, second := &fakeRequester{}, &fakeRequester{}
	b := NewBridge()
	b.Attach(first)
	b.Attach(second)

	b.Detach(first)
	require.True(t, b.Attached())

	b.Detach(second)
	require.False(t, b.Attached())
}
