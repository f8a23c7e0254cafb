package orchestration

import (
	"context"
	"fmt"
	"log/slog"
)

// Step represents a single step in the orchestration pipeline. Execute
// returns the action log lines it contributes; lines returned together with
// an error are kept, so partial progress stays visible.
type Step struct {
	Name        string
	Description string
	Execute     func(ctx context.Context) ([]string, error)
}

// StepError reports which step aborted a pipeline.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Pipeline executes a series of steps strictly in order, stopping at the
// first failure.
type Pipeline struct {
	name   string
	logger *slog.Logger
	steps  []Step
}

// NewPipeline creates a new orchestration pipeline
func NewPipeline(name string, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		name:   name,
		logger: logger,
		steps:  make([]Step, 0),
	}
}

// AddStep adds a step to the pipeline. An empty description adds nothing to
// the action log when the step starts.
func (p *Pipeline) AddStep(name, description string, fn func(ctx context.Context) ([]string, error)) *Pipeline {
	p.steps = append(p.steps, Step{
		Name:        name,
		Description: description,
		Execute:     fn,
	})
	return p
}

// Run executes all steps in order and returns the accumulated action log.
func (p *Pipeline) Run(ctx context.Context) (ActionLog, error) {
	var log ActionLog
	p.logger.Info("starting pipeline", "pipeline", p.name, "steps", len(p.steps))

	for i, step := range p.steps {
		p.logger.Debug("executing step", "pipeline", p.name, "step", step.Name, "index", i+1)
		if err := ctx.Err(); err != nil {
			return log, &StepError{Step: step.Name, Err: err}
		}

		if step.Description != "" {
			log = log.With(step.Description)
			p.logger.Info(step.Description, "pipeline", p.name, "step", step.Name)
		}

		lines, err := step.Execute(ctx)
		for _, line := range lines {
			p.logger.Info(line, "pipeline", p.name, "step", step.Name)
		}
		log = log.With(lines...)

		if err != nil {
			p.logger.Error("step failed", "pipeline", p.name, "step", step.Name, "error", err)
			return log, &StepError{Step: step.Name, Err: err}
		}
	}

	p.logger.Info("pipeline completed successfully", "pipeline", p.name)
	return log, nil
}
