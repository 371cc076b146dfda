package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"os/exec"
)

// LocalDispatcher runs the worker binary as a detached subprocess, for
// development without a queue. The TaskMessage is written to the child's
// stdin; acceptance means the process started, not that it finished.
type LocalDispatcher struct {
	workerBin string
}

func NewLocalDispatcher(workerBin string) *LocalDispatcher {
	return &LocalDispatcher{workerBin: workerBin}
}

func (d *LocalDispatcher) Execute(ctx context.Context, msg *TaskMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return &DispatchError{Backend: "local", Err: err}
	}

	// Deliberately not CommandContext: the child must outlive the request.
	cmd := exec.Command(d.workerBin, "task")
	cmd.Stdin = bytes.NewReader(payload)

	if err := cmd.Start(); err != nil {
		return &DispatchError{Backend: "local", Err: err}
	}

	// Reap the child when it exits so it does not linger as a zombie.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Printf("[dispatch] local worker for %s/%s exited: %v", msg.Kind, msg.ProjectID, err)
		}
	}()

	return nil
}
