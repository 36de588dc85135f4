package bench

import (
	"context"
	"math/rand"
	"time"

	"github.com/llmpulse/llmpulse/internal/stats"
)

const promptSuffixLen = 8

// Observer receives each Outcome as it completes. Used for live progress
// reporting; may be nil.
type Observer interface {
	Observe(Outcome)
}

// Options configure the Runner.
type Options struct {
	Requests        int           // logical requests to issue (>= 1)
	Pacing          time.Duration // fixed wait between logical requests
	Prompt          string
	RandomizePrompt bool // append a fresh random suffix per logical request
	Buckets         int  // histogram bucket count; 0 means 10
	Executor        *Executor
	Observer        Observer
	Sleep           SleepFunc  // nil means Sleep; used for pacing only
	Rand            *rand.Rand // suffix source; nil seeds from wall clock
}

// Result is the completed benchmark: outcomes in strict request order plus
// statistics derived from the successful subset. Summary is nil when no
// request succeeded; Buckets is nil in the same case.
type Result struct {
	Outcomes []Outcome      `json:"outcomes"`
	Summary  *stats.Summary `json:"stats,omitempty"`
	Buckets  []stats.Bucket `json:"buckets,omitempty"`
}

// Latencies returns the successful latencies in seconds, in request order.
func (r Result) Latencies() []float64 {
	out := make([]float64, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		if o.Status == StatusSuccess {
			out = append(out, o.LatencySeconds)
		}
	}
	return out
}

// Runner drives the full benchmark sequentially.
type Runner struct {
	opt Options
}

func NewRunner(opt Options) *Runner {
	if opt.Requests < 1 {
		opt.Requests = 1
	}
	if opt.Buckets < 1 {
		opt.Buckets = stats.DefaultBuckets
	}
	if opt.Rand == nil {
		opt.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Runner{opt: opt}
}

// Run executes all configured logical requests and returns the accumulated
// Result. Individual failures never abort the batch; every configured
// request is attempted. Outcomes are appended in issue order, which equals
// completion order since execution is strictly sequential.
func (r *Runner) Run(ctx context.Context) Result {
	res := Result{Outcomes: make([]Outcome, 0, r.opt.Requests)}

	for i := 1; i <= r.opt.Requests; i++ {
		outcome := r.opt.Executor.Execute(ctx, i, r.promptFor(i))
		res.Outcomes = append(res.Outcomes, outcome)
		if r.opt.Observer != nil {
			r.opt.Observer.Observe(outcome)
		}
		if i < r.opt.Requests {
			if err := r.sleep(ctx, r.opt.Pacing); err != nil {
				// Context gone; remaining requests would only error out,
				// but the batch contract still wants one outcome each.
				continue
			}
		}
	}

	if summary, ok := stats.Compute(res.Latencies()); ok {
		res.Summary = &summary
		res.Buckets = stats.BuildHistogram(res.Latencies(), r.opt.Buckets)
	}
	return res
}

func (r *Runner) sleep(ctx context.Context, d time.Duration) error {
	if r.opt.Sleep != nil {
		return r.opt.Sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// promptFor returns the prompt for logical request i. The random suffix is
// chosen once per logical request so retries of that request replay the
// same prompt.
func (r *Runner) promptFor(i int) string {
	if !r.opt.RandomizePrompt {
		return r.opt.Prompt
	}
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	buf := make([]byte, promptSuffixLen)
	for j := range buf {
		buf[j] = alphabet[r.opt.Rand.Intn(len(alphabet))]
	}
	return r.opt.Prompt + " [rnd:" + string(buf) + "]"
}
