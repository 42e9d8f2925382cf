// Package command defines the messages exchanged between a batcher and its
// workers: commands flow through the inbox, results through the outbox.
package command

import (
	"fmt"

	"github.com/viant/batcher/model/job"
)

// Kind represents command kind
type Kind int

const (
	// KindJob instructs a worker to execute a job
	KindJob Kind = iota + 1
	// KindKill instructs a worker to stop
	KindKill
)

func (k Kind) String() string {
	switch k {
	case KindJob:
		return "job"
	case KindKill:
		return "kill"
	}
	return fmt.Sprintf("unknown(%d)", int(k))
}

// Command is an orchestrator to worker message
type Command struct {
	Kind    Kind     `json:"kind"`
	Index   int      `json:"index,omitempty"`
	BatchID string   `json:"batchId,omitempty"`
	Job     *job.Job `json:"job,omitempty"`
}

// NewJob creates a job command for the supplied slot
func NewJob(batchID string, index int, aJob *job.Job) *Command {
	return &Command{Kind: KindJob, Index: index, BatchID: batchID, Job: aJob}
}

// NewKill creates a kill command
func NewKill() *Command {
	return &Command{Kind: KindKill}
}
