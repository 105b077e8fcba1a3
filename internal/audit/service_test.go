package audit

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type stubTimelineRepo struct {
	rows        []TimelineRow
	lastOffset  int
	lastLimit   int
	lastFilters TimelineFilters
}

func (s *stubTimelineRepo) TimelineWindow(_ context.Context, filters TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	s.lastFilters, s.lastOffset, s.lastLimit = filters, offset, limit
	end := offset + limit
	if offset >= len(s.rows) {
		return nil, nil
	}
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *stubTimelineRepo) TimelineAll(_ context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	s.lastFilters = filters
	return s.rows, nil
}

func sampleRows() []TimelineRow {
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	return []TimelineRow{
		{At: base, ActorID: 1, Action: "role.updated", Entity: "role", EntityID: "4"},
		{At: base.Add(-time.Hour), ActorID: 1, Action: "user.roles_assigned", Entity: "user", EntityID: "7"},
		{At: base.Add(-2 * time.Hour), ActorID: 2, Action: "role.deleted", Entity: "role", EntityID: "5"},
	}
}

func TestServiceTimelinePaging(t *testing.T) {
	repo := &stubTimelineRepo{rows: sampleRows()}
	svc := NewService(repo)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.True(t, result.Paging.HasNext)
	require.Equal(t, 2, result.Paging.NextPage)
	require.Equal(t, 3, repo.lastLimit)
	require.Zero(t, repo.lastOffset)

	result, err = svc.Timeline(context.Background(), TimelineFilters{Page: 2, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.False(t, result.Paging.HasNext)
	require.Equal(t, 1, result.Paging.PrevPage)
	require.Equal(t, 2, repo.lastOffset)
}

func TestServiceTimelineClampsPageSize(t *testing.T) {
	repo := &stubTimelineRepo{}
	result, err := NewService(repo).Timeline(context.Background(), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, result.Paging.PageSize)
	require.Equal(t, maxPageSize+1, repo.lastLimit)
	require.NotNil(t, result.Rows)
}

func TestServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil).Timeline(context.Background(), TimelineFilters{})
	require.Error(t, err)
	_, err = NewService(nil).Export(context.Background(), TimelineFilters{})
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	rows := sampleRows()
	rows[0].Meta = map[string]any{"holders": 3}
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, rows))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "At,Actor,Action,Entity,Entity ID,Meta", lines[0])
	require.Equal(t, `2026-03-10T10:00:00Z,1,role.updated,role,4,"{""holders"":3}"`, lines[1])
}
