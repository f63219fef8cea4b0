package worker_test

import (
	"context"
	"fmt"
	"log"

	"github.com/JHodgkins/Test-Recorder-Extension/internal/capture"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/recorder"
	"github.com/JHodgkins/Test-Recorder-Extension/internal/taskqueue"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/api"
	"github.com/JHodgkins/Test-Recorder-Extension/pkg/worker"
)

// ExampleWorker shows a recorder that queues candidates and a Worker that
// runs their pipelines one at a time.
func ExampleWorker() {
	ctx := context.Background()

	queue := taskqueue.NewInMemoryQueue(16)
	rec := recorder.New(recorder.Config{
		Capturer: capture.Static{Image: api.NewPNG([]byte("png"))},
		Queue:    queue,
	})
	w := worker.New(rec, queue)

	rec.Start(ctx, "Demo")
	rec.RecordEvent(ctx, "", api.StepCandidate{EventType: api.EventLeftClick, ElementDescription: "Save"})

	if _, err := w.ProcessOne(ctx); err != nil {
		log.Fatal(err)
	}

	res := rec.Stop(ctx)
	fmt.Println(res.TestPlanName, len(res.Steps), res.Steps[0].ElementDescription)
	// Output: Demo 1 Save
}
