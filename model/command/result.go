package command

import "errors"

// Result is a worker to orchestrator message carrying the outcome of a job
// identified by its slot index.
type Result struct {
	Index   int         `json:"index"`
	BatchID string      `json:"batchId,omitempty"`
	Value   interface{} `json:"value,omitempty"`
	Error   string      `json:"error,omitempty"`
	Err     error       `json:"-"`
}

// NewResult creates a result, err is kept both as value and message so that
// it survives serialised transports.
func NewResult(batchID string, index int, value interface{}, err error) *Result {
	ret := &Result{Index: index, BatchID: batchID, Value: value, Err: err}
	if err != nil {
		ret.Error = err.Error()
	}
	return ret
}

// Failure returns job error if any
func (r *Result) Failure() error {
	if r.Err != nil {
		return r.Err
	}
	if r.Error != "" {
		return errors.New(r.Error)
	}
	return nil
}
