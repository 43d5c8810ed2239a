package processor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"sunto-go/internal/document"
	"sunto-go/internal/ingest"
	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

// Transcriber turns a media upload into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req types.UploadRequest) (types.TranscriptionResult, error)
}

// Processor routes an upload by ingestion mode: media goes through the
// transcription pipeline, documents are imported as text.
type Processor struct {
	transcriber Transcriber
	limits      ingest.Limits
	log         *logger.Logger
}

func New(t Transcriber, limits ingest.Limits, log *logger.Logger) *Processor {
	if limits == nil {
		limits = ingest.DefaultLimits()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Processor{transcriber: t, limits: limits, log: log}
}

// Ingest returns the uniform result for either mode.
func (p *Processor) Ingest(ctx context.Context, req types.UploadRequest) (types.TranscriptionResult, error) {
	if req.Language == "" {
		req.Language = types.DefaultLanguage
	}
	if req.Mode == "" {
		req.Mode = types.ModeMedia
	}
	log := p.log.WithFields(logrus.Fields{"component": "processor", "mode": req.Mode, "file_name": req.FileName})

	start := time.Now()
	var (
		res types.TranscriptionResult
		err error
	)
	switch req.Mode {
	case types.ModeMedia:
		res, err = p.transcriber.Transcribe(ctx, req)
	case types.ModeDocument:
		res, err = p.importDocument(req)
	default:
		err = types.Errorf(types.KindValidation, "modalità di caricamento non valida: %q", req.Mode)
		res = types.TranscriptionResult{FileName: req.FileName, LanguageCode: req.Language, Error: types.MessageOf(err, "")}
	}
	res.DurationMs = time.Since(start).Milliseconds()

	log = log.WithField("duration_ms", res.DurationMs)
	if err != nil {
		log.WithError(err).WithField("kind", types.KindOf(err)).Warn("ingestion failed")
		return res, err
	}
	log.WithField("length", len(res.Transcription)).Info("ingestion finished")
	return res, nil
}

func (p *Processor) importDocument(req types.UploadRequest) (types.TranscriptionResult, error) {
	res := types.TranscriptionResult{FileName: req.FileName, LanguageCode: req.Language}
	fail := func(err error) (types.TranscriptionResult, error) {
		res.Error = types.MessageOf(err, "Errore durante la lettura del file")
		return res, err
	}

	if err := p.limits.Validate(req.Size, types.ModeDocument); err != nil {
		return fail(err)
	}
	if req.File == nil {
		return fail(types.Errorf(types.KindValidation, "File non trovato"))
	}
	text, err := document.Extract(req.FileName, req.File)
	if err != nil {
		return fail(err)
	}
	res.Success = true
	res.Transcription = text
	return res, nil
}
