package transcription

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sunto-go/internal/ingest"
	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

// Provider is the speech-to-text service used by the pipeline.
type Provider interface {
	// Configured reports whether credentials are present.
	Configured() bool
	Upload(ctx context.Context, file io.ReadSeeker, size int64) (string, error)
	CreateJob(ctx context.Context, audioURL, language string) (string, error)
	JobGetter
}

// Pipeline sequences validate -> upload -> create job -> poll. It keeps no
// state between calls and is safe for concurrent use.
type Pipeline struct {
	provider Provider
	limits   ingest.Limits
	poller   *Poller
	log      *logger.Logger
}

func NewPipeline(provider Provider, limits ingest.Limits, poller *Poller, log *logger.Logger) *Pipeline {
	if limits == nil {
		limits = ingest.DefaultLimits()
	}
	if poller == nil {
		poller = NewPoller(DefaultPollInterval, DefaultMaxAttempts, log)
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{provider: provider, limits: limits, poller: poller, log: log}
}

// Transcribe turns one media upload into text. The returned result always
// matches the error: Success with text when err is nil, otherwise the
// failure message.
func (p *Pipeline) Transcribe(ctx context.Context, req types.UploadRequest) (types.TranscriptionResult, error) {
	start := time.Now()
	if req.Language == "" {
		req.Language = types.DefaultLanguage
	}
	mode := req.Mode
	if mode == "" {
		mode = types.ModeMedia
	}
	res := types.TranscriptionResult{FileName: req.FileName, LanguageCode: req.Language}
	log := p.log.WithFields(logrus.Fields{
		"component": "transcription",
		"file_name": req.FileName,
		"size":      req.Size,
		"language":  req.Language,
	})

	fail := func(err error) (types.TranscriptionResult, error) {
		res.Error = types.MessageOf(err, msgInternal)
		res.DurationMs = time.Since(start).Milliseconds()
		return res, err
	}

	if !p.provider.Configured() {
		log.Error("transcription provider key not configured")
		return fail(types.Errorf(types.KindConfiguration, msgNoConfig))
	}
	if err := p.limits.Validate(req.Size, mode); err != nil {
		log.WithError(err).Warn("upload rejected by validation")
		return fail(err)
	}
	if req.File == nil {
		return fail(types.Errorf(types.KindValidation, "File non trovato"))
	}

	log.Info("uploading file")
	uploadURL, err := p.provider.Upload(ctx, req.File, req.Size)
	if err != nil {
		return fail(err)
	}

	log.Info("creating transcription job")
	jobID, err := p.provider.CreateJob(ctx, uploadURL, req.Language)
	if err != nil {
		return fail(err)
	}

	log.WithField("job_id", jobID).Info("polling for transcription completion")
	job, err := p.poller.Wait(ctx, p.provider, jobID)
	if err != nil {
		return fail(err)
	}

	res.Success = true
	res.Transcription = strings.TrimSpace(job.Text)
	res.DurationMs = time.Since(start).Milliseconds()
	log.WithFields(logrus.Fields{"length": len(res.Transcription), "duration_ms": res.DurationMs}).Info("transcription completed")
	return res, nil
}
