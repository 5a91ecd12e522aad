package metrics

import (
	"github.com/mwiater/tokbench/internal/benchmark"
)

// Observer feeds finished benchmark records into a Recorder's throughput gauge.
type Observer struct {
	benchmark.NopObserver
	recorder *Recorder
}

// NewObserver returns a benchmark.Observer backed by recorder.
func NewObserver(recorder *Recorder) *Observer {
	return &Observer{recorder: recorder}
}

// InvocationFinished sets the tokens/sec gauge for the model and category.
func (o *Observer) InvocationFinished(model string, rec benchmark.ResultRecord, _ string) {
	if o.recorder == nil || rec.Failed {
		return
	}
	o.recorder.ObserveRecord(model, rec.Category, rec.TokensPerSecond)
}
