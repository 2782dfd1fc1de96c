package echoapi_test

import (
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/parokia/apps/api/echo"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/recurrence"
)

// monday 2024-09-02 18:00 EDT, weekly on mondays
const rehearsal = `{
	"title": "Rehearsal",
	"location": "Church hall",
	"starts_at": "2024-09-02T18:00:00-04:00",
	"ends_at": "2024-09-02T19:00:00-04:00",
	"visibility": "PUBLIC",
	"recurrence": {"frequency": "WEEKLY", "interval": 1, "by_weekday": [1]}
}`

var firstRehearsal = time.Date(2024, 9, 2, 22, 0, 0, 0, time.UTC)

func createRehearsal(t *testing.T, env *testEnv, token string) event.Event {
	t.Helper()
	rec := env.do(newAuthRequest(http.MethodPost, env.path("/events"), token, []byte(rehearsal)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var e event.Event
	unmarshall(t, rec, &e)
	return e
}

func listInstances(t *testing.T, env *testEnv, token, query string) echoapi.InstancesResponse {
	t.Helper()
	rec := env.do(newAuthRequest(http.MethodGet, env.path("/events"+query), token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.InstancesResponse
	unmarshall(t, rec, &resp)
	return resp
}

func millis(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func Test_eventApi_create(t *testing.T) {
	env := newTestEnv(t)
	adminToken := getToken(t, env.conf, env.admin)

	e := createRehearsal(t, env, adminToken)
	assert.Equal(t, env.parish.ID, e.ParishID)
	assert.Equal(t, env.admin.ID, e.CreatedByID)
	assert.True(t, e.StartsAt.Equal(firstRehearsal))

	tests := []httpTest{
		{
			name: "outsider", method: http.MethodPost, path: env.path("/events"), body: []byte(rehearsal),
			token: getToken(t, env.conf, env.outsider), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "missing title", method: http.MethodPost, path: env.path("/events"), token: adminToken,
			body:     []byte(`{"starts_at": "2024-09-02T18:00:00-04:00", "ends_at": "2024-09-02T19:00:00-04:00", "visibility": "PUBLIC"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"title": "this field is required"}`),
		},
		{
			name: "bad weekday", method: http.MethodPost, path: env.path("/events"), token: adminToken,
			body: []byte(`{"title": "X", "starts_at": "2024-09-02T18:00:00-04:00", "ends_at": "2024-09-02T19:00:00-04:00",
				"visibility": "PUBLIC", "recurrence": {"frequency": "WEEKLY", "by_weekday": [7]}}`),
			wantCode: http.StatusBadRequest,
		},
	}
	env.run(t, tests)

	t.Run("one-off event", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodPost, env.path("/events"), adminToken, []byte(`{
			"title": "Mass", "starts_at": "2024-09-05T09:00:00-04:00", "ends_at": "2024-09-05T10:00:00-04:00",
			"visibility": "PUBLIC"
		}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var mass event.Event
		unmarshall(t, rec, &mass)
		assert.Equal(t, recurrence.None, mass.Recurrence.Frequency)
	})

	t.Run("interval defaults to 1", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodPost, env.path("/events"), adminToken, []byte(`{
			"title": "Adoration", "starts_at": "2024-09-06T19:00:00-04:00", "ends_at": "2024-09-06T20:00:00-04:00",
			"visibility": "PUBLIC", "recurrence": {"frequency": "WEEKLY"}
		}`)))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var adoration event.Event
		unmarshall(t, rec, &adoration)
		assert.Equal(t, 1, adoration.Recurrence.Interval)
	})
}

func Test_eventApi_list(t *testing.T) {
	env := newTestEnv(t)
	memberToken := getToken(t, env.conf, env.member)
	e := createRehearsal(t, env, getToken(t, env.conf, env.admin))

	t.Run("current week by default", func(t *testing.T) {
		resp := listInstances(t, env, memberToken, "")
		require.Len(t, resp.Instances, 1)
		assert.False(t, resp.Truncated)
		in := resp.Instances[0]
		assert.Equal(t, e.ID+"-"+millis(firstRehearsal), in.InstanceID)
		assert.True(t, in.StartsAt.Equal(firstRehearsal))
		assert.True(t, in.Recurring)
	})

	t.Run("four weeks, chronological", func(t *testing.T) {
		resp := listInstances(t, env, memberToken, "?from=2024-09-02T04:00:00Z&to=2024-09-30T04:00:00Z")
		require.Len(t, resp.Instances, 4)
		for i, in := range resp.Instances {
			assert.True(t, in.StartsAt.Equal(firstRehearsal.AddDate(0, 0, 7*i)), "instance %d starts at %v", i, in.StartsAt)
		}
	})

	t.Run("outsider sees nothing", func(t *testing.T) {
		resp := listInstances(t, env, getToken(t, env.conf, env.outsider), "")
		assert.Empty(t, resp.Instances)
	})

	tests := []httpTest{
		{
			name: "inverted range", path: env.path("/events?from=2024-09-09T00:00:00Z&to=2024-09-02T00:00:00Z"), token: memberToken,
			wantCode: http.StatusBadRequest,
		},
		{
			name: "missing to", path: env.path("/events?from=2024-09-09T00:00:00Z"), token: memberToken,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"to": "this field is required"}`),
		},
	}
	env.run(t, tests)
}

func Test_eventApi_calendar(t *testing.T) {
	env := newTestEnv(t)
	createRehearsal(t, env, getToken(t, env.conf, env.admin))

	rec := env.do(newAuthRequest(http.MethodGet, env.path("/events.ics"), getToken(t, env.conf, env.member)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar"))

	body := rec.Body.String()
	assert.Contains(t, body, "BEGIN:VCALENDAR")
	assert.Contains(t, body, "X-WR-CALNAME:St. Joseph")
	assert.Contains(t, body, "DTSTART:20240902T220000Z")
	assert.Equal(t, 1, strings.Count(body, "BEGIN:VEVENT"))
}

func Test_eventApi_updateOccurrence(t *testing.T) {
	env := newTestEnv(t)
	adminToken := getToken(t, env.conf, env.admin)
	memberToken := getToken(t, env.conf, env.member)
	e := createRehearsal(t, env, adminToken)
	second := firstRehearsal.AddDate(0, 0, 7)
	month := "?from=2024-09-02T04:00:00Z&to=2024-09-30T04:00:00Z"

	occurrence := func(start time.Time) string {
		return env.path("/events/" + e.ID + "/occurrences/" + millis(start))
	}

	t.Run("retitle this event only", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodPut, occurrence(second), adminToken, []byte(`{"title": "Dress rehearsal"}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := listInstances(t, env, memberToken, month)
		require.Len(t, resp.Instances, 4)
		assert.Equal(t, "Rehearsal", resp.Instances[0].Title)
		assert.Equal(t, "Dress rehearsal", resp.Instances[1].Title)
		assert.True(t, resp.Instances[1].Overridden)
		assert.Equal(t, "Rehearsal", resp.Instances[2].Title)
	})

	t.Run("cancel accepts RFC 3339 starts", func(t *testing.T) {
		path := env.path("/events/" + e.ID + "/occurrences/" + firstRehearsal.AddDate(0, 0, 14).Format(time.RFC3339))
		rec := env.do(newAuthRequest(http.MethodPut, path, adminToken, []byte(`{"cancelled": true}`)))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := listInstances(t, env, memberToken, month)
		assert.Len(t, resp.Instances, 3)
	})

	tests := []httpTest{
		{
			name: "not an occurrence", method: http.MethodPut, path: occurrence(second.Add(time.Hour)), token: adminToken,
			body: []byte(`{"cancelled": true}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "member cannot edit", method: http.MethodPut, path: occurrence(second), token: memberToken,
			body: []byte(`{"cancelled": true}`), wantCode: http.StatusForbidden,
			wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown event", method: http.MethodPut, path: env.path("/events/nope/occurrences/" + millis(second)), token: adminToken,
			body: []byte(`{"cancelled": true}`), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "event not found"}),
		},
	}
	env.run(t, tests)
}

func Test_eventApi_updateSeries(t *testing.T) {
	env := newTestEnv(t)
	adminToken := getToken(t, env.conf, env.admin)
	e := createRehearsal(t, env, adminToken)

	rec := env.do(newAuthRequest(http.MethodPut, env.path("/events/"+e.ID), adminToken, []byte(`{"title": "Choir practice"}`)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated event.Event
	unmarshall(t, rec, &updated)
	assert.Equal(t, "Choir practice", updated.Title)
	assert.True(t, updated.StartsAt.Equal(e.StartsAt))

	resp := listInstances(t, env, adminToken, "?from=2024-09-02T04:00:00Z&to=2024-09-16T04:00:00Z")
	require.Len(t, resp.Instances, 2)
	for _, in := range resp.Instances {
		assert.Equal(t, "Choir practice", in.Title)
	}

	t.Run("delete", func(t *testing.T) {
		rec := env.do(newAuthRequest(http.MethodDelete, env.path("/events/"+e.ID), adminToken))
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		rec = env.do(newAuthRequest(http.MethodGet, env.path("/events/"+e.ID), adminToken))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
