package classify

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"license-classifier/internal/ai"
	"license-classifier/internal/util"
)

var (
	ErrEmptyLicense = errors.New("license name is required")
	ErrEmptyBatch   = errors.New("no license names to classify")
)

const (
	fallbackServiceExplanation  = "Classification unavailable due to a model service error. Default category assigned."
	fallbackResponseExplanation = "Classification unavailable due to a malformed model response. Default category assigned."
)

// Outcome is the terminal result for one license name. A degraded outcome
// carries the default category and a failure-describing explanation; it is a
// normal return, never an error.
type Outcome struct {
	LicenseName   string `json:"license_name"`
	Category      string `json:"category"`
	Explanation   string `json:"explanation"`
	Degraded      bool   `json:"degraded"`
	FailureReason string `json:"failure_reason,omitempty"`
	DurationMs    int64  `json:"duration_ms"`
}

// Orchestrator drives license classification end-to-end: prompt construction,
// model call, response interpretation, and length enforcement. The model
// client is injected so tests can script completions and failures.
type Orchestrator struct {
	client  ai.Classifier
	workers int

	// OnResult, when set, is invoked as each batch item completes. Callbacks
	// may arrive out of input order; the returned slice never does.
	OnResult func(index int, outcome Outcome)
}

// NewOrchestrator wires the orchestrator to a model client. A non-positive
// worker count selects a CPU-bound default.
func NewOrchestrator(client ai.Classifier, workers int) *Orchestrator {
	if workers <= 0 {
		workers = defaultWorkerCount()
	}
	return &Orchestrator{client: client, workers: workers}
}

// ClassifyOne classifies a single license name. An empty name is a caller
// error; every model-side failure degrades to a fallback outcome instead.
func (o *Orchestrator) ClassifyOne(ctx context.Context, licenseName string) (Outcome, error) {
	licenseName = strings.TrimSpace(licenseName)
	if licenseName == "" {
		return Outcome{}, ErrEmptyLicense
	}

	timer := util.StartTimer()

	raw, err := o.client.Classify(ctx, SystemPrompt(), BuildPrompt(licenseName))
	if err != nil {
		logrus.WithError(err).WithField("license", licenseName).Warn("model call failed, using fallback")
		return o.fallback(licenseName, fallbackServiceExplanation, err, timer), nil
	}

	parsed, err := Interpret(raw)
	if err != nil {
		logrus.WithError(err).WithField("license", licenseName).Warn("unusable model response, using fallback")
		return o.fallback(licenseName, fallbackResponseExplanation, err, timer), nil
	}

	return Outcome{
		LicenseName: licenseName,
		Category:    parsed.Category,
		Explanation: EnforceExplanation(parsed.Explanation),
		DurationMs:  timer.ElapsedMs(),
	}, nil
}

// ClassifyBatch classifies every name in input order with a bounded worker
// pool. The returned slice has one outcome per input, in input order,
// regardless of which items degraded. Cancelling the context stops issuing
// new model calls; the error reports the interruption and already completed
// outcomes stay intact.
func (o *Orchestrator) ClassifyBatch(ctx context.Context, licenseNames []string) ([]Outcome, error) {
	if len(licenseNames) == 0 {
		return nil, ErrEmptyBatch
	}

	results := make([]Outcome, len(licenseNames))
	taskCh := make(chan int)

	workers := o.workers
	if workers > len(licenseNames) {
		workers = len(licenseNames)
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range taskCh {
				outcome, err := o.ClassifyOne(ctx, licenseNames[idx])
				if err != nil {
					// Per-item caller errors degrade like model errors so the
					// batch keeps its one-outcome-per-input shape.
					outcome = o.fallback(strings.TrimSpace(licenseNames[idx]), fallbackServiceExplanation, err, util.StartTimer())
					outcome.LicenseName = licenseNames[idx]
				}
				results[idx] = outcome
				if o.OnResult != nil {
					o.OnResult(idx, outcome)
				}
			}
		}()
	}

dispatch:
	for idx := range licenseNames {
		select {
		case taskCh <- idx:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(taskCh)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (o *Orchestrator) fallback(licenseName, explanation string, cause error, timer util.Timer) Outcome {
	reason := ""
	if cause != nil {
		reason = cause.Error()
	}
	return Outcome{
		LicenseName:   licenseName,
		Category:      DefaultCategory,
		Explanation:   EnforceExplanation(explanation),
		Degraded:      true,
		FailureReason: reason,
		DurationMs:    timer.ElapsedMs(),
	}
}

func defaultWorkerCount() int {
	workers := runtime.NumCPU()
	if workers < 2 {
		workers = 2
	}
	if workers > 8 {
		workers = 8
	}
	return workers
}
