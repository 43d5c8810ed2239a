package workflow

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sunto-go/internal/completion"
	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

const MaxSteps = 10

type Completer interface {
	Complete(ctx context.Context, req types.CompletionRequest) (types.CompletionResult, error)
}

// StepError reports which step stopped the workflow.
type StepError struct {
	Index      int
	ActionType types.ActionType
	Err        error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow step %d (%s): %v", e.Index, e.ActionType, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Runner chains completions: the output of one step is the content of the
// next.
type Runner struct {
	completer Completer
	log       *logger.Logger
}

func NewRunner(c Completer, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Discard()
	}
	return &Runner{completer: c, log: log}
}

// Run executes steps in order and returns the output of every step that
// succeeded. On failure the results so far are returned with a *StepError.
func (r *Runner) Run(ctx context.Context, content string, steps []types.WorkflowStep) ([]types.StepResult, error) {
	if content == "" {
		return nil, types.Errorf(types.KindValidation, "Il contenuto è richiesto")
	}
	if len(steps) == 0 {
		return nil, types.Errorf(types.KindValidation, "Il workflow non contiene passaggi")
	}
	if len(steps) > MaxSteps {
		return nil, types.Errorf(types.KindValidation, "Il workflow supera il limite di %d passaggi", MaxSteps)
	}

	// Resolve every prompt up front so a bad step fails before any call.
	prompts := make([]string, len(steps))
	for i, step := range steps {
		p, err := completion.ResolvePrompt(step.ActionType, step.Prompt)
		if err != nil {
			return nil, &StepError{Index: i, ActionType: step.ActionType, Err: err}
		}
		prompts[i] = p
	}

	results := make([]types.StepResult, 0, len(steps))
	current := content
	for i, step := range steps {
		log := r.log.WithFields(logrus.Fields{"component": "workflow", "step": i, "action_type": step.ActionType})
		res, err := r.completer.Complete(ctx, types.CompletionRequest{
			Prompt:     prompts[i],
			Content:    current,
			ActionType: step.ActionType,
		})
		if err != nil {
			log.WithError(err).Warn("workflow step failed")
			return results, &StepError{Index: i, ActionType: step.ActionType, Err: err}
		}
		log.Debug("workflow step done")
		results = append(results, types.StepResult{Index: i, ActionType: step.ActionType, Content: res.Content})
		current = res.Content
	}
	return results, nil
}
