package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/enrollment-dashboard-api/internal/models"
	appErrors "github.com/noah-isme/enrollment-dashboard-api/pkg/errors"
)

type fakeFetcher struct {
	sheets []models.RawSheet
	err    error
	names  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, names []string) ([]models.RawSheet, error) {
	f.names = names
	return f.sheets, f.err
}

type recordingRecorder struct {
	events []*models.RefreshEvent
}

func (r *recordingRecorder) Record(_ context.Context, event *models.RefreshEvent) error {
	r.events = append(r.events, event)
	return nil
}

func TestSheetLoaderLoadsAndAudits(t *testing.T) {
	fetcher := &fakeFetcher{sheets: twoSheetFixture()}
	recorder := &recordingRecorder{}
	loader := NewSheetLoader(SheetLoaderParams{
		Fetcher:    fetcher,
		SheetNames: []string{"Foundation Data", "CUET UG Data"},
		Recorder:   recorder,
		Metrics:    NewMetricsService(),
	})
	start := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	loader.now = func() time.Time { return start }

	table, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, []string{"Foundation Data", "CUET UG Data"}, fetcher.names)
	require.Len(t, recorder.events, 1)
	event := recorder.events[0]
	assert.Equal(t, models.RefreshStatusSuccess, event.Status)
	assert.Equal(t, 2, event.SheetsLoaded)
	assert.Equal(t, 4, event.RowsLoaded)
	assert.Equal(t, 1, event.RowsDroppedInvalidDate)
	assert.True(t, event.StartedAt.Equal(start))
	assert.Nil(t, event.ErrorMessage)
	assert.NotEmpty(t, event.ID)
}

func TestSheetLoaderEmptyResult(t *testing.T) {
	recorder := &recordingRecorder{}
	loader := NewSheetLoader(SheetLoaderParams{Fetcher: &fakeFetcher{}, Recorder: recorder})

	table, err := loader.Load(context.Background())

	assert.Nil(t, table)
	assert.ErrorIs(t, err, appErrors.ErrEmptyResult)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.RefreshStatusEmpty, recorder.events[0].Status)
}

func TestSheetLoaderFetchFailure(t *testing.T) {
	recorder := &recordingRecorder{}
	loader := NewSheetLoader(SheetLoaderParams{Fetcher: &fakeFetcher{err: appErrors.ErrAuth}, Recorder: recorder})

	_, err := loader.Load(context.Background())

	assert.ErrorIs(t, err, appErrors.ErrAuth)
	require.Len(t, recorder.events, 1)
	assert.Equal(t, models.RefreshStatusFailed, recorder.events[0].Status)
	require.NotNil(t, recorder.events[0].ErrorMessage)
	assert.Contains(t, *recorder.events[0].ErrorMessage, "credential")
}
