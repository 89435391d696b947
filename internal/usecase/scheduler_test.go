package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alekseyt9/newsdigest/internal/domain"
)

// immediateDriver fires the job once, synchronously, on Start.
type immediateDriver struct {
	stopped bool
}

func (d *immediateDriver) Start(ctx context.Context, job func(time.Time)) error {
	job(time.Now())
	return nil
}

func (d *immediateDriver) Stop(ctx context.Context) error {
	d.stopped = true
	return nil
}

func TestSchedulerPublishesRunErrors(t *testing.T) {
	t.Parallel()

	src := &staticSource{err: errors.New("all feeds down")}
	channel := &scriptedChannel{}
	pipeline := newTestPipeline(src, &fakeAnalyzer{}, channel, &archiveRecorder{}, defaultOpts())

	driver := &immediateDriver{}
	sched := NewScheduler(driver, pipeline, channel, nil)

	require.NoError(t, sched.Start(context.Background()))
	require.Len(t, channel.notices, 1)
	assert.Contains(t, channel.notices[0], "all feeds down")

	require.NoError(t, sched.Stop(context.Background()))
	assert.True(t, driver.stopped)
}

func TestSchedulerQuietOnSuccessfulRun(t *testing.T) {
	t.Parallel()

	src := &staticSource{articles: []domain.Article{
		{Title: "alpha", URL: "https://n.example/a"},
	}}
	analyzer := &fakeAnalyzer{responses: map[string]string{
		"alpha": `{"summary":"s","score":9,"category":"MARKET"}`,
	}}
	channel := &scriptedChannel{}
	pipeline := newTestPipeline(src, analyzer, channel, &archiveRecorder{}, defaultOpts())

	sched := NewScheduler(&immediateDriver{}, pipeline, channel, nil)

	require.NoError(t, sched.Start(context.Background()))
	assert.Empty(t, channel.notices)
	assert.Len(t, channel.batches, 1)
}
