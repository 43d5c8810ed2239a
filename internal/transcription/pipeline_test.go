package transcription

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sunto-go/internal/ingest"
	"sunto-go/internal/logger"
	"sunto-go/internal/types"
)

// --- Mock types ---

type MockProvider struct {
	mock.Mock
	unconfigured bool
}

func (m *MockProvider) Configured() bool { return !m.unconfigured }

func (m *MockProvider) Upload(ctx context.Context, file io.ReadSeeker, size int64) (string, error) {
	args := m.Called(ctx, file, size)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) CreateJob(ctx context.Context, audioURL, language string) (string, error) {
	args := m.Called(ctx, audioURL, language)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) GetJob(ctx context.Context, id string) (types.Job, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.Job), args.Error(1)
}

// fakeClock records requested waits instead of sleeping.
type fakeClock struct {
	waits []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.waits = append(c.waits, d)
	return ctx.Err()
}

func (c *fakeClock) total() time.Duration {
	var sum time.Duration
	for _, d := range c.waits {
		sum += d
	}
	return sum
}

func newTestPipeline(p Provider) (*Pipeline, *fakeClock) {
	clock := &fakeClock{}
	poller := NewPoller(DefaultPollInterval, DefaultMaxAttempts, logger.Discard())
	poller.Sleep = clock.Sleep
	return NewPipeline(p, ingest.DefaultLimits(), poller, logger.Discard()), clock
}

func mediaRequest(size int64) types.UploadRequest {
	return types.UploadRequest{
		File:     strings.NewReader("audio-bytes"),
		Size:     size,
		FileName: "meeting.mp3",
		Mode:     types.ModeMedia,
	}
}

func processing(id string) types.Job {
	return types.Job{ID: id, Status: types.JobProcessing}
}

// --- Tests ---

func TestTranscribeCompletedOnFirstPoll(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, int64(1024)).Return("https://cdn/upload/1", nil).Once()
	p.On("CreateJob", mock.Anything, "https://cdn/upload/1", "it").Return("job-1", nil).Once()
	p.On("GetJob", mock.Anything, "job-1").Return(types.Job{ID: "job-1", Status: types.JobCompleted, Text: "Ciao a tutti."}, nil).Once()

	pipeline, clock := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Ciao a tutti.", res.Transcription)
	assert.Equal(t, "meeting.mp3", res.FileName)
	assert.Equal(t, "it", res.LanguageCode)
	assert.Empty(t, clock.waits)
	p.AssertNumberOfCalls(t, "Upload", 1)
	p.AssertNumberOfCalls(t, "CreateJob", 1)
	p.AssertNumberOfCalls(t, "GetJob", 1)
}

func TestTranscribeProcessingThenCompleted(t *testing.T) {
	const n = 7
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "en").Return("job-2", nil).Once()
	p.On("GetJob", mock.Anything, "job-2").Return(processing("job-2"), nil).Times(n)
	p.On("GetJob", mock.Anything, "job-2").Return(types.Job{ID: "job-2", Status: types.JobCompleted, Text: "done"}, nil).Once()

	pipeline, clock := newTestPipeline(p)
	req := mediaRequest(1024)
	req.Language = "en"
	res, err := pipeline.Transcribe(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "done", res.Transcription)
	p.AssertNumberOfCalls(t, "GetJob", n+1)
	assert.Len(t, clock.waits, n)
	assert.Equal(t, n*DefaultPollInterval, clock.total())
}

func TestTranscribeTimesOutAfterMaxAttempts(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("job-3", nil).Once()
	p.On("GetJob", mock.Anything, "job-3").Return(types.Job{ID: "job-3", Status: types.JobQueued}, nil)

	pipeline, _ := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindPollingTimeout))
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Timeout")
	p.AssertNumberOfCalls(t, "GetJob", DefaultMaxAttempts)
}

func TestTranscribeProviderErrorStopsPolling(t *testing.T) {
	const k = 3
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("job-4", nil).Once()
	p.On("GetJob", mock.Anything, "job-4").Return(processing("job-4"), nil).Times(k - 1)
	p.On("GetJob", mock.Anything, "job-4").Return(types.Job{ID: "job-4", Status: types.JobError, Error: "bad audio"}, nil).Once()

	pipeline, _ := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindProviderTranscription))
	assert.Contains(t, err.Error(), "bad audio")
	assert.Contains(t, res.Error, "bad audio")
	p.AssertNumberOfCalls(t, "GetJob", k)
}

func TestTranscribeCompletedWithEmptyText(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("job-5", nil).Once()
	p.On("GetJob", mock.Anything, "job-5").Return(types.Job{ID: "job-5", Status: types.JobCompleted, Text: "  \n"}, nil).Once()

	pipeline, _ := newTestPipeline(p)
	_, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	assert.True(t, types.IsKind(err, types.KindEmptyTranscription))
}

func TestTranscribePollCallFailureAbortsImmediately(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("job-6", nil).Once()
	p.On("GetJob", mock.Anything, "job-6").Return(processing("job-6"), nil).Once()
	p.On("GetJob", mock.Anything, "job-6").Return(types.Job{}, types.Errorf(types.KindPollingFailed, msgPoll)).Once()

	pipeline, clock := newTestPipeline(p)
	_, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	assert.True(t, types.IsKind(err, types.KindPollingFailed))
	p.AssertNumberOfCalls(t, "GetJob", 2)
	assert.Len(t, clock.waits, 1)
}

func TestTranscribeUploadRejectedSkipsJob(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("", types.Errorf(types.KindUploadRejected, msgUpload)).Once()

	pipeline, _ := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	assert.True(t, types.IsKind(err, types.KindUploadRejected))
	assert.Equal(t, msgUpload, res.Error)
	p.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

func TestTranscribeJobCreationFailedSkipsPolling(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("", types.Errorf(types.KindJobCreationFailed, msgCreate)).Once()

	pipeline, _ := newTestPipeline(p)
	_, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	assert.True(t, types.IsKind(err, types.KindJobCreationFailed))
	p.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

func TestTranscribeTooLargeMakesNoCalls(t *testing.T) {
	p := new(MockProvider)

	pipeline, _ := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(300*ingest.MiB+1))

	assert.True(t, types.IsKind(err, types.KindFileTooLarge))
	assert.False(t, res.Success)
	p.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "CreateJob", mock.Anything, mock.Anything, mock.Anything)
	p.AssertNotCalled(t, "GetJob", mock.Anything, mock.Anything)
}

func TestTranscribeUnconfiguredProviderMakesNoCalls(t *testing.T) {
	p := &MockProvider{unconfigured: true}

	pipeline, _ := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(1024))

	assert.True(t, types.IsKind(err, types.KindConfiguration))
	assert.Equal(t, msgNoConfig, res.Error)
	assert.Empty(t, p.Calls)
}

func TestTranscribeDocumentCeilingMakesNoCalls(t *testing.T) {
	p := new(MockProvider)

	pipeline, _ := newTestPipeline(p)
	req := mediaRequest(12 * ingest.MiB)
	req.Mode = types.ModeDocument
	_, err := pipeline.Transcribe(context.Background(), req)

	assert.True(t, types.IsKind(err, types.KindFileTooLarge))
	assert.Empty(t, p.Calls)
}

func TestTranscribeLargeMediaScenario(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("job-7", nil).Once()
	p.On("GetJob", mock.Anything, "job-7").Return(processing("job-7"), nil).Times(3)
	p.On("GetJob", mock.Anything, "job-7").Return(types.Job{ID: "job-7", Status: types.JobCompleted, Text: "Hello world."}, nil).Once()

	pipeline, clock := newTestPipeline(p)
	res, err := pipeline.Transcribe(context.Background(), mediaRequest(250*ingest.MiB))

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "Hello world.", res.Transcription)
	assert.Equal(t, 15*time.Second, clock.total())
	p.AssertExpectations(t)
}

func TestTranscribeCancelledDuringWait(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil).Once()
	p.On("CreateJob", mock.Anything, "u", "it").Return("job-8", nil).Once()
	p.On("GetJob", mock.Anything, "job-8").Return(processing("job-8"), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	pipeline, _ := newTestPipeline(p)
	pipeline.poller.Sleep = func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}
	_, err := pipeline.Transcribe(ctx, mediaRequest(1024))

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	p.AssertNumberOfCalls(t, "GetJob", 1)
}

func TestTranscribeConcurrentInvocationsAreIndependent(t *testing.T) {
	p := new(MockProvider)
	p.On("Upload", mock.Anything, mock.Anything, mock.Anything).Return("u", nil)
	p.On("CreateJob", mock.Anything, "u", "it").Return("job", nil)
	p.On("GetJob", mock.Anything, "job").Return(types.Job{ID: "job", Status: types.JobCompleted, Text: "ok"}, nil)

	pipeline, _ := newTestPipeline(p)
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := pipeline.Transcribe(context.Background(), mediaRequest(10))
			errs <- err
		}()
	}
	for i := 0; i < 8; i++ {
		assert.NoError(t, <-errs)
	}
	p.AssertNumberOfCalls(t, "Upload", 8)
}
