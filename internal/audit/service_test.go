package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type stubRepo struct {
	rows       []TimelineRow
	lastLimit  int
	lastOffset int
}

func (r *stubRepo) TimelineWindow(_ context.Context, _ TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	r.lastLimit = limit
	r.lastOffset = offset
	if offset >= len(r.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.rows) {
		end = len(r.rows)
	}
	return r.rows[offset:end], nil
}

func (r *stubRepo) TimelineAll(_ context.Context, _ TimelineFilters) ([]TimelineRow, error) {
	return r.rows, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = TimelineRow{At: at.Add(-time.Duration(i) * time.Hour), Action: "authz.deny", Entity: "policy", EntityID: "x"}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: makeRows(25)}
	svc := NewService(repo)

	result, err := svc.Timeline(t.Context(), TimelineFilters{Page: 1, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 20)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Zero(t, result.Paging.PrevPage)
	assert.Equal(t, 21, repo.lastLimit, "service asks for one extra row")

	result, err = svc.Timeline(t.Context(), TimelineFilters{Page: 2, PageSize: 20})
	require.NoError(t, err)
	assert.Len(t, result.Rows, 5)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 1, result.Paging.PrevPage)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{rows: makeRows(5)}
	svc := NewService(repo)

	_, err := svc.Timeline(t.Context(), TimelineFilters{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 51, repo.lastLimit)
	assert.Zero(t, repo.lastOffset)
}

func TestTimelineWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	_, err := svc.Timeline(t.Context(), TimelineFilters{})
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	rows := []TimelineRow{
		{At: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC), ActorID: 7, Action: "auth.login", Entity: "user", EntityID: "7"},
	}
	payload, err := WriteCSV(rows)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "at,actor_id,action,entity,entity_id")
	assert.Contains(t, string(payload), "2026-08-01T12:00:00Z,7,auth.login,user,7")
}
