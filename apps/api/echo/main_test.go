package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/mail"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/parokia/apps/api/echo"
	"github.com/trezcool/parokia/core"
	"github.com/trezcool/parokia/core/access"
	"github.com/trezcool/parokia/core/announcement"
	"github.com/trezcool/parokia/core/clock"
	"github.com/trezcool/parokia/core/digest"
	"github.com/trezcool/parokia/core/event"
	"github.com/trezcool/parokia/core/parish"
	"github.com/trezcool/parokia/core/request"
	"github.com/trezcool/parokia/core/task"
	"github.com/trezcool/parokia/core/user"
	"github.com/trezcool/parokia/core/week"
	emailsvc "github.com/trezcool/parokia/services/email"
	logsvc "github.com/trezcool/parokia/services/logger"
	inmemdb "github.com/trezcool/parokia/storage/database/inmem"
)

var (
	newYork = clock.MustLoadLocation("America/New_York")
	// Wednesday of 2024-W36
	testNow = time.Date(2024, 9, 4, 12, 0, 0, 0, newYork)

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

type testEnv struct {
	conf *core.Config
	app  *echoapi.Server
	mail *emailsvc.ConsoleService

	users    *user.Service
	parishes *parish.Service
	weeks    *week.Service
	tasks    *task.Service
	events   *event.Service
	anns     *announcement.Service
	requests *request.Service
	digests  *digest.Service

	parish   parish.Parish
	week     week.Week
	admin    user.User
	shepherd user.User
	member   user.User
	outsider user.User
}

func newTestEnv(t *testing.T, configure ...func(conf *core.Config)) *testEnv {
	t.Helper()
	ctx := context.Background()
	clock.NowFunc = func() time.Time { return testNow }
	t.Cleanup(func() { clock.NowFunc = time.Now })

	conf := core.NewTestConfig()
	for _, fn := range configure {
		fn(conf)
	}
	validate, translator := core.NewValidator()
	user.RegisterValidators(validate, translator)

	db := inmemdb.Open()
	tx := inmemdb.NewTxRunner(db)
	env := &testEnv{conf: conf, mail: emailsvc.NewConsoleServiceMock(conf)}
	env.users = user.NewService(inmemdb.NewUserRepository(db))
	env.parishes = parish.NewService(inmemdb.NewParishRepository(db), env.users, clock.NewResolver(conf))
	env.weeks = week.NewService(inmemdb.NewWeekRepository(db), env.parishes)
	env.tasks = task.NewService(inmemdb.NewTaskRepository(db), env.weeks)
	env.events = event.NewService(tx, inmemdb.NewEventRepository(db), env.parishes, core.NopMetrics, conf)
	env.anns = announcement.NewService(inmemdb.NewAnnouncementRepository(db))
	env.requests = request.NewService(inmemdb.NewRequestRepository(db))
	env.digests = digest.NewService(tx, inmemdb.NewDigestRepository(db), digest.Sources{
		Weeks:         env.weeks,
		Tasks:         env.tasks,
		Events:        env.events,
		Announcements: env.anns,
		Parishes:      env.parishes,
	}, env.mail, core.NopMetrics, conf)

	env.app = echoapi.NewServer(echoapi.ServerDeps{
		Conf:            conf,
		Logger:          logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		Validate:        validate,
		Translator:      translator,
		UserSvc:         env.users,
		ParishSvc:       env.parishes,
		WeekSvc:         env.weeks,
		TaskSvc:         env.tasks,
		EventSvc:        env.events,
		AnnouncementSvc: env.anns,
		RequestSvc:      env.requests,
		DigestSvc:       env.digests,
	})

	var err error
	env.parish, err = env.parishes.Create(ctx, parish.NewParish{Name: "St. Joseph", Slug: "st-joseph", Timezone: "America/New_York"})
	require.NoError(t, err)
	env.week, err = env.weeks.GetOrCreateCurrent(ctx, env.parish.ID, testNow)
	require.NoError(t, err)

	env.admin = env.createUser(t, "Anna Admin", "admin@parokia.test", access.RoleAdmin)
	env.shepherd = env.createUser(t, "Father Paul", "paul@parokia.test", access.RoleShepherd)
	env.member = env.createUser(t, "Mark Member", "mark@parokia.test", access.RoleMember)
	env.outsider = env.createUser(t, "Olive Out", "olive@parokia.test", "")
	return env
}

const testPassword = "Gr4ce&Peace!"

func (env *testEnv) createUser(t *testing.T, name, email string, role access.ParishRole) user.User {
	t.Helper()
	ctx := context.Background()
	usr, err := env.users.Create(ctx, user.NewUser{Name: name, Email: email, Password: testPassword, PasswordConfirm: testPassword})
	require.NoError(t, err)
	if role != "" {
		_, err = env.parishes.AddMember(ctx, env.parish.ID, usr.ID, role)
		require.NoError(t, err)
	}
	return usr
}

func (env *testEnv) viewer(t *testing.T, usr user.User) access.Viewer {
	t.Helper()
	v, err := env.parishes.Viewer(context.Background(), env.parish.ID, usr)
	require.NoError(t, err)
	return v
}

func (env *testEnv) path(suffix string) string {
	return "/v1/parishes/" + env.parish.ID + suffix
}

func (env *testEnv) do(req *http.Request, rec *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	env.app.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) run(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			rec := env.do(newAuthRequest(method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, conf *core.Config, usr user.User) string {
	token, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarshall(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func addresses(addrs []mail.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Address)
	}
	return out
}
