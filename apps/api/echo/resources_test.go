package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/request"
)

func Test_announcementApi(t *testing.T) {
	env := newTestEnv(t)
	adminToken := getToken(t, env.conf, env.admin)
	memberToken := getToken(t, env.conf, env.member)

	rec := env.do(newAuthRequest(http.MethodPost, env.path("/announcements"), adminToken,
		[]byte(`{"title": "Feast", "body": "Sunday after Mass.", "scope": "PARISH"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var draft announcement.Announcement
	unmarshall(t, rec, &draft)
	assert.Equal(t, announcement.StatusDraft, draft.Status)

	list := func(t *testing.T, token string) []announcement.Announcement {
		t.Helper()
		rec := env.do(newAuthRequest(http.MethodGet, env.path("/announcements"), token))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var anns []announcement.Announcement
		unmarshall(t, rec, &anns)
		return anns
	}

	assert.Empty(t, list(t, memberToken))
	assert.Len(t, list(t, adminToken), 1)

	rec = env.do(newAuthRequest(http.MethodGet, env.path("/announcements/"+draft.ID), memberToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(newAuthRequest(http.MethodPost, env.path("/announcements/"+draft.ID+"/publish"), adminToken))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var published announcement.Announcement
	unmarshall(t, rec, &published)
	assert.Equal(t, announcement.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.True(t, published.PublishedAt.Equal(testNow))

	assert.Len(t, list(t, memberToken), 1)

	tests := []httpTest{
		{
			name: "chat needs a channel", method: http.MethodPost, path: env.path("/announcements"), token: adminToken,
			body:     []byte(`{"title": "Choir", "body": "Practice moved.", "scope": "CHAT"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"channel": "this field is required"}`),
		},
		{
			name: "outsider cannot post", method: http.MethodPost, path: env.path("/announcements"), token: getToken(t, env.conf, env.outsider),
			body:     []byte(`{"title": "Feast", "body": "Sunday after Mass.", "scope": "PARISH"}`),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
	}
	env.run(t, tests)
}

func Test_requestApi(t *testing.T) {
	env := newTestEnv(t)
	memberToken := getToken(t, env.conf, env.member)
	shepherdToken := getToken(t, env.conf, env.shepherd)
	adminToken := getToken(t, env.conf, env.admin)
	other := env.createUser(t, "Nina Neighbour", "nina@parokia.test", access.RoleMember)
	otherToken := getToken(t, env.conf, other)

	rec := env.do(newAuthRequest(http.MethodPost, env.path("/requests"), memberToken,
		[]byte(`{"subject": "Confession", "body": "Could we meet this week?", "scope": "CLERGY_ONLY"}`)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var req request.Request
	unmarshall(t, rec, &req)
	assert.Equal(t, request.StatusOpen, req.Status)

	detail := env.path("/requests/" + req.ID)
	tests := []httpTest{
		{name: "requester", path: detail, token: memberToken, wantCode: http.StatusOK},
		{name: "clergy", path: detail, token: shepherdToken, wantCode: http.StatusOK},
		{name: "admin is not clergy", path: detail, token: adminToken, wantCode: http.StatusNotFound},
		{
			name: "other member", path: detail, token: otherToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "request not found"}),
		},
		{
			name: "only leaders assign", method: http.MethodPut, path: detail + "/assign", token: memberToken,
			body: []byte(`{"assignee_ids": ["x"]}`), wantCode: http.StatusForbidden,
		},
	}
	env.run(t, tests)

	t.Run("assign then close", func(t *testing.T) {
		body := marshallObj(t, map[string][]string{"assignee_ids": {env.shepherd.ID, env.shepherd.ID}})
		rec := env.do(newAuthRequest(http.MethodPut, detail+"/assign", shepherdToken, body))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var assigned request.Request
		unmarshall(t, rec, &assigned)
		assert.Equal(t, []string{env.shepherd.ID}, assigned.AssigneeIDs)
		assert.Equal(t, request.StatusInProgress, assigned.Status)

		rec = env.do(newAuthRequest(http.MethodPut, detail+"/close", memberToken))
		assert.Equal(t, http.StatusForbidden, rec.Code)

		rec = env.do(newAuthRequest(http.MethodPut, detail+"/close", shepherdToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var closed request.Request
		unmarshall(t, rec, &closed)
		assert.Equal(t, request.StatusClosed, closed.Status)
	})
}
