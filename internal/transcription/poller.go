package transcription

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultMaxAttempts  = 60
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// JobGetter reads the state of a provider job.
type JobGetter interface {
	GetJob(ctx context.Context, id string) (types.Job, error)
}

// Poller drives a job to a terminal state: it polls once immediately, then
// waits Interval between polls, and gives up after MaxAttempts polls. A
// failed poll call ends the loop at once.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       Sleeper
	Log         *logger.Logger
}

func NewPoller(interval time.Duration, maxAttempts int, log *logger.Logger) *Poller {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Poller{
		Interval:    interval,
		MaxAttempts: maxAttempts,
		Sleep:       Sleep,
		Log:         log,
	}
}

// Wait returns the completed job, or an error classified as
// ProviderTranscription, EmptyTranscription, PollingFailed or
// PollingTimeout.
func (p *Poller) Wait(ctx context.Context, jobs JobGetter, id string) (types.Job, error) {
	log := p.Log.WithField("job_id", id)
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, p.Interval); err != nil {
				return types.Job{}, types.Wrap(types.KindInternal, "richiesta annullata", err)
			}
		}

		job, err := jobs.GetJob(ctx, id)
		if err != nil {
			log.WithError(err).WithField("attempt", attempt).Error("polling aborted")
			return types.Job{}, err
		}
		log.WithFields(logrus.Fields{"attempt": attempt, "status": job.Status}).Info("transcription status")

		switch job.Status {
		case types.JobCompleted:
			if strings.TrimSpace(job.Text) == "" {
				return job, types.Errorf(types.KindEmptyTranscription,
					"Nessun contenuto trascritto generato. Il file potrebbe essere vuoto o danneggiato.")
			}
			return job, nil
		case types.JobError:
			log.WithField("provider_error", job.Error).Error("transcription failed")
			return job, types.Errorf(types.KindProviderTranscription,
				"Errore durante la trascrizione: %s", job.Error)
		case types.JobQueued, types.JobProcessing:
		default:
			log.WithField("status", job.Status).Warn("unknown transcription status, polling on")
		}
	}

	log.WithField("max_attempts", p.MaxAttempts).Error("transcription timed out")
	return types.Job{}, types.Errorf(types.KindPollingTimeout,
		"Timeout durante la trascrizione. Riprova con un file più piccolo.")
}
