// Package plan runs a YAML list of navigation commands, one session per step:
//
//	name: survey-loop
//	steps:
//	  - label: goto-a
//	    mode: 1
//	    a: 100
//	    b: 101
//	    c: 102
//	    pause: 500ms
//
// Steps run in order and the run stops at the first step that fails. A step the control server
// closes without replying still counts as delivered.
package plan

import (
	"context"
	"errors"
	"fmt"
	"nav-command/message"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Step struct {
	Label string  `yaml:"label"`
	Mode  int32   `yaml:"mode"`
	A     float64 `yaml:"a"`
	B     float64 `yaml:"b"`
	C     float64 `yaml:"c"`
	Pause string  `yaml:"pause"` // wait after the step, e.g. "250ms"

	pause time.Duration
}

// Record returns the command record of the step.
func (s *Step) Record() *message.CommandRecord {
	return &message.CommandRecord{Mode: s.Mode, A: s.A, B: s.B, C: s.C}
}

type Plan struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Sender delivers one command, client.Client implements it.
type Sender interface {
	Call(ctx context.Context, rec *message.CommandRecord) (message.Ack, error)
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Index    int
	Label    string
	Ack      message.Ack
	Err      error
	Duration time.Duration
}

var ErrEmptyPlan = errors.New("plan has no steps")

// Load reads and validates a plan file.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes and validates a plan.
func Parse(data []byte) (*Plan, error) {
	p := &Plan{}
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Plan) validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyPlan
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		if s.Label == "" {
			s.Label = fmt.Sprintf("step-%d", i+1)
		}
		if s.Pause == "" {
			continue
		}
		d, err := time.ParseDuration(s.Pause)
		if err != nil {
			return fmt.Errorf("step %s: invalid pause: %w", s.Label, err)
		}
		if d < 0 {
			return fmt.Errorf("step %s: pause must not be negative", s.Label)
		}
		s.pause = d
	}
	return nil
}

// Run sends every step through sender. onStep, if not nil, is called after each step. It returns
// the results of the executed steps and the error of the failed step, if any.
func (p *Plan) Run(ctx context.Context, sender Sender, onStep func(StepResult)) ([]StepResult, error) {
	results := make([]StepResult, 0, len(p.Steps))
	for i := range p.Steps {
		s := &p.Steps[i]
		if err := ctx.Err(); err != nil {
			return results, err
		}

		start := time.Now()
		ack, err := sender.Call(ctx, s.Record())
		res := StepResult{Index: i, Label: s.Label, Ack: ack, Err: err, Duration: time.Since(start)}
		results = append(results, res)
		if onStep != nil {
			onStep(res)
		}
		if err != nil {
			return results, fmt.Errorf("step %s: %w", s.Label, err)
		}

		if s.pause > 0 && i < len(p.Steps)-1 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.pause):
			}
		}
	}
	return results, nil
}
