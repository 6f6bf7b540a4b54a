package render

import (
	"sync"
	"time"

	"marquee/internal/transform"
)

// Call is one recorded surface command.
type Call struct {
	Op       string
	ID       string
	Opts     BannerOptions
	Text     transform.RichText
	X, Y     int
	FromX    int
	ToX      int
	Opacity  float64
	Duration time.Duration
}

// Recorder is a Surface that records every command. FailOps maps an op
// name ("CreateBanner", "SetPosition", ...) to an error returned instead
// of recording, for exercising retry behavior in tests.
type Recorder struct {
	mu      sync.Mutex
	calls   []Call
	FailOps map[string]error
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Calls returns a copy of the recorded commands.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Ops returns just the op names, in order, optionally filtered by banner id
// (empty id matches all).
func (r *Recorder) Ops(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.calls {
		if id == "" || c.ID == id {
			out = append(out, c.Op)
		}
	}
	return out
}

// Last returns the most recent call with the given op name for the banner,
// and whether one exists.
func (r *Recorder) Last(id, op string) (Call, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.calls) - 1; i >= 0; i-- {
		if r.calls[i].ID == id && r.calls[i].Op == op {
			return r.calls[i], true
		}
	}
	return Call{}, false
}

// SetFail makes op fail with err until cleared with a nil err.
func (r *Recorder) SetFail(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailOps == nil {
		r.FailOps = make(map[string]error)
	}
	if err == nil {
		delete(r.FailOps, op)
		return
	}
	r.FailOps[op] = err
}

func (r *Recorder) record(c Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.FailOps[c.Op]; ok {
		return err
	}
	r.calls = append(r.calls, c)
	return nil
}

func (r *Recorder) CreateBanner(id string, opts BannerOptions) error {
	return r.record(Call{Op: "CreateBanner", ID: id, Opts: opts})
}

func (r *Recorder) SetText(id string, text transform.RichText) error {
	return r.record(Call{Op: "SetText", ID: id, Text: text})
}

func (r *Recorder) SetPosition(id string, x, y int) error {
	return r.record(Call{Op: "SetPosition", ID: id, X: x, Y: y})
}

func (r *Recorder) SetOpacity(id string, opacity float64) error {
	return r.record(Call{Op: "SetOpacity", ID: id, Opacity: opacity})
}

func (r *Recorder) StartScrollPass(id string, fromX, toX int, duration time.Duration) error {
	return r.record(Call{Op: "StartScrollPass", ID: id, FromX: fromX, ToX: toX, Duration: duration})
}

func (r *Recorder) DestroyBanner(id string) error {
	return r.record(Call{Op: "DestroyBanner", ID: id})
}
