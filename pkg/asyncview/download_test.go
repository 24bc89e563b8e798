package asyncview

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EeroPaukkonen/django-celery-async-view/internal/testutils"
)

func TestStartDownloadMissingBaseURL(t *testing.T) {
	rec := &recorder{}
	nav := &fakeNavigator{}

	f, err := StartDownload(context.Background(), DownloadOptions{Navigator: nav, Options: Options{Callbacks: rec.callbacks()}})

	assert.Nil(t, f)
	assert.ErrorIs(t, err, ErrMissingBaseURL)
	assert.Empty(t, rec.list())
}

func TestStartDownloadMissingNavigator(t *testing.T) {
	_, err := StartDownload(context.Background(), DownloadOptions{BaseURL: "/export"})
	assert.ErrorIs(t, err, ErrMissingNavigator)
}

func TestDownloadReadyOnCreate(t *testing.T) {
	rec := &recorder{}
	tr := &fakeTransport{respond: func(string, int) (string, error) {
		return `{"task_id": "abc", "ready": true}`, nil
	}}
	nav := &fakeNavigator{rec: rec}

	opts := fastOptions(rec, 3)
	opts.Transport = tr
	f, err := StartDownload(context.Background(), DownloadOptions{BaseURL: "/export", Navigator: nav, Options: opts})
	require.NoError(t, err)
	require.NoError(t, f.Wait())

	assert.Equal(t, []string{"/export"}, tr.requests(), "polling is skipped")
	assert.Equal(t, []string{"/export?task_id=abc&download=true"}, nav.urls)
	assert.Equal(t, []string{"success", "complete", "navigate"}, rec.list())
	assert.Equal(t, "abc", f.TaskID())
	assert.Equal(t, 0, f.Attempts())
	assert.Equal(t, Ready, f.State())
}

func TestDownloadReadyOnFirstPoll(t *testing.T) {
	rec := &recorder{}
	tr := &fakeTransport{respond: func(url string, n int) (string, error) {
		if n == 1 {
			return `{"task_id": "abc", "ready": false}`, nil
		}
		return `{"ready": true}`, nil
	}}
	nav := &fakeNavigator{rec: rec}

	opts := fastOptions(rec, 3)
	opts.Transport = tr
	err := RunDownload(context.Background(), DownloadOptions{BaseURL: "/export?format=csv", Navigator: nav, Options: opts})
	require.NoError(t, err)

	assert.Equal(t, []string{"/export?format=csv", "/export?format=csv&task_id=abc"}, tr.requests())
	assert.Equal(t, 1, tr.statusPolls())
	assert.Equal(t, []string{"/export?format=csv&task_id=abc&download=true"}, nav.urls)
	assert.Equal(t, []string{"success", "complete", "navigate"}, rec.list())
}

func TestDownloadCreationReadinessNotCounted(t *testing.T) {
	rec := &recorder{}
	tr := &fakeTransport{respond: func(url string, n int) (string, error) {
		if n == 1 {
			return `{"task_id": "abc", "ready": false}`, nil
		}
		return `{"ready": false}`, nil
	}}
	nav := &fakeNavigator{}

	opts := fastOptions(rec, 2)
	opts.Transport = tr
	err := RunDownload(context.Background(), DownloadOptions{BaseURL: "/export", Navigator: nav, Options: opts})

	var budgetErr *BudgetExhaustedError
	require.ErrorAs(t, err, &budgetErr)
	assert.Equal(t, 2, budgetErr.Attempts)
	assert.Equal(t, "abc", budgetErr.TaskID)
	assert.Equal(t, 2, tr.statusPolls(), "the creation request does not use up the budget")
	assert.Empty(t, nav.urls)
	assert.Equal(t, []string{"error", "complete"}, rec.list())
}

func TestDownloadCreationTransportError(t *testing.T) {
	rec := &recorder{}
	tr := &fakeTransport{respond: func(string, int) (string, error) { return "", errNetwork }}
	nav := &fakeNavigator{}

	opts := fastOptions(rec, 3)
	opts.Transport = tr
	f, err := StartDownload(context.Background(), DownloadOptions{BaseURL: "/export", Navigator: nav, Options: opts})
	require.NoError(t, err)

	err = f.Wait()
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "create", transportErr.Op)
	assert.Equal(t, Exhausted, f.State())
	assert.Empty(t, f.TaskID())
	assert.Empty(t, nav.urls)
	assert.Equal(t, []string{"error", "complete"}, rec.list())
}

func TestDownloadCreationWithoutTaskID(t *testing.T) {
	rec := &recorder{}
	tr := &fakeTransport{respond: func(string, int) (string, error) { return `{"ready": false}`, nil }}

	opts := fastOptions(rec, 3)
	opts.Transport = tr
	err := RunDownload(context.Background(), DownloadOptions{BaseURL: "/export", Navigator: &fakeNavigator{}, Options: opts})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Len(t, tr.requests(), 1)
	assert.Equal(t, []string{"error", "complete"}, rec.list())
}

func TestDownloadPollTransportErrorIsFatal(t *testing.T) {
	server := testutils.NewTaskServer(t, testutils.TaskServerOptions{
		TaskID:     "abc",
		ReadyAfter: -1,
		FailPoll:   2,
	})

	rec := &recorder{}
	nav := &fakeNavigator{}
	err := RunDownload(context.Background(), DownloadOptions{BaseURL: server.BaseURL(), Navigator: nav, Options: fastOptions(rec, 10)})

	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, 2, server.Polls(), "the flow stops at the failed poll")
	assert.Empty(t, nav.urls)
	assert.Equal(t, []string{"error", "complete"}, rec.list())
}

func TestDownloadNavigateFailure(t *testing.T) {
	rec := &recorder{}
	tr := &fakeTransport{respond: func(string, int) (string, error) { return `{"task_id": "abc", "ready": true}`, nil }}
	nav := &fakeNavigator{err: errors.New("disk full")}

	opts := fastOptions(rec, 3)
	opts.Transport = tr
	err := RunDownload(context.Background(), DownloadOptions{BaseURL: "/export", Navigator: nav, Options: opts})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"success", "complete"}, rec.list(), "success only means the download was started")
}

func TestDownloadAgainstServer(t *testing.T) {
	server := testutils.NewTaskServer(t, testutils.TaskServerOptions{
		TaskID:     "abc",
		ReadyAfter: 1,
	})

	rec := &recorder{}
	nav := &fakeNavigator{}
	opts := fastOptions(rec, 5)
	opts.Schedule = Graduated(time.Millisecond, 5*time.Millisecond)
	err := RunDownload(context.Background(), DownloadOptions{BaseURL: server.BaseURL(), Navigator: nav, Options: opts})
	require.NoError(t, err)

	assert.Equal(t, 1, server.Creates())
	assert.Equal(t, 2, server.Polls())
	assert.Equal(t, []string{server.BaseURL() + "?task_id=abc&download=true"}, nav.urls)
	assert.Equal(t, []string{
		testutils.TaskPath,
		testutils.TaskPath + "?task_id=abc",
		testutils.TaskPath + "?task_id=abc",
	}, server.Requests())
}
