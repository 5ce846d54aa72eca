package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"

	"github.com/Dosada05/club-challenges/auth"
	"github.com/Dosada05/club-challenges/metrics"
	"github.com/Dosada05/club-challenges/middleware"
	"github.com/Dosada05/club-challenges/models"
	"github.com/Dosada05/club-challenges/repositories"
	"github.com/Dosada05/club-challenges/services"
)

func TestMain(m *testing.M) {
	auth.BcryptCost = bcrypt.MinCost
	os.Exit(m.Run())
}

type testAPI struct {
	t       *testing.T
	router  http.Handler
	handler *GraphQLHandler
	metrics *metrics.Metrics
}

type apiResponse struct {
	status  int
	Data    json.RawMessage `json:"data"`
	Errors  []graphQLError  `json:"errors"`
	cookies []*http.Cookie
}

func (r *apiResponse) code() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Extensions["code"]
}

func newTestAPI(t *testing.T, burst int) *testAPI {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	svc := services.New(services.Dependencies{
		Store:   repositories.NewMemoryStore().Store(),
		Tokens:  auth.NewTokenManager("handler-secret", time.Hour),
		Metrics: m,
		Logger:  logger,
	})
	limiter := middleware.NewIPRateLimiter(rate.Limit(0.001), burst)
	h := NewGraphQLHandler(svc, limiter, m, true, logger)
	uploads := NewUploadHandler(svc.Users, svc.Clubs, logger)

	r := chi.NewRouter()
	r.Use(middleware.Identify(svc.Auth, true, logger))
	r.Method(http.MethodPost, "/graphql", h)
	r.Post("/uploads/me/avatar", uploads.UploadAvatar)
	r.Post("/uploads/clubs/{clubID}/{kind}", uploads.UploadClubImage)
	return &testAPI{t: t, router: r, handler: h, metrics: m}
}

func (a *testAPI) send(req *http.Request) *apiResponse {
	a.t.Helper()
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	out := &apiResponse{status: rec.Code, cookies: rec.Result().Cookies()}
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	return out
}

func (a *testAPI) call(token, op string, vars interface{}) *apiResponse {
	a.t.Helper()
	body, err := json.Marshal(map[string]interface{}{"operationName": op, "variables": vars})
	require.NoError(a.t, err)
	req := httptest.NewRequest(http.MethodPost, "/graphql", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.send(req)
}

// ok выполняет операцию, ожидая успех, и декодирует data в dst.
func (a *testAPI) ok(token, op string, vars interface{}, dst interface{}) {
	a.t.Helper()
	res := a.call(token, op, vars)
	require.Empty(a.t, res.Errors, "operation %s", op)
	require.Equal(a.t, http.StatusOK, res.status)
	if dst != nil {
		require.NoError(a.t, json.Unmarshal(res.Data, dst))
	}
}

func (a *testAPI) register(email, first string) (string, *models.User) {
	a.t.Helper()
	var out struct {
		Token string       `json:"token"`
		User  *models.User `json:"user"`
	}
	a.ok("", "register", map[string]interface{}{
		"email": email, "password": "password123", "firstName": first, "lastName": "Tester",
	}, &out)
	require.NotEmpty(a.t, out.Token)
	return out.Token, out.User
}

func TestGuardRejectsAnonymousCalls(t *testing.T) {
	api := newTestAPI(t, 100)
	for _, op := range api.handler.Operations() {
		if publicOperations[op] {
			continue
		}
		res := api.call("", op, map[string]interface{}{"id": 1, "clubId": 1, "challengeId": 1})
		assert.Equal(t, CodeUnauthenticated, res.code(), "operation %s", op)
		assert.Equal(t, "null", string(res.Data), "operation %s", op)
	}
}

func TestOperationTableCoversAPI(t *testing.T) {
	api := newTestAPI(t, 100)
	want := []string{
		"register", "login", "logout", "authStatus", "me",
		"users", "user", "userByEmail", "updateProfile",
		"createClub", "club", "clubs", "myClubs",
		"joinClub", "leaveClub", "getClubMembers",
		"inviteToClub", "getClubInvitations", "getMyInvitations", "acceptInvitation",
		"createChallenge", "challenge", "clubChallenges", "updateChallengeStatus", "rebuildChallengeLeaderboard",
		"submitChallengeEntry", "challengeEntries", "userChallengeEntries", "updateChallengeEntry",
	}
	assert.ElementsMatch(t, want, api.handler.Operations())
}

func TestRegisterLoginLogout(t *testing.T) {
	api := newTestAPI(t, 100)

	res := api.call("", "register", map[string]interface{}{
		"email": "ann@example.com", "password": "password123", "firstName": "Ann", "lastName": "Lee",
	})
	require.Empty(t, res.Errors)
	require.Len(t, res.cookies, 1)
	cookie := res.cookies[0]
	assert.Equal(t, middleware.AuthCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.NotContains(t, string(res.Data), "password")

	dup := api.call("", "register", map[string]interface{}{
		"email": "ANN@example.com", "password": "password123", "firstName": "Ann", "lastName": "Lee",
	})
	assert.Equal(t, CodeConflict, dup.code())

	wrongPassword := api.call("", "login", map[string]interface{}{"email": "ann@example.com", "password": "nope-nope"})
	unknownEmail := api.call("", "login", map[string]interface{}{"email": "nobody@example.com", "password": "nope-nope"})
	assert.Equal(t, CodeUnauthenticated, wrongPassword.code())
	assert.Equal(t, wrongPassword.Errors, unknownEmail.Errors)

	// cookie работает как альтернатива заголовку.
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"operationName":"authStatus"}`))
	req.AddCookie(cookie)
	status := api.send(req)
	var st struct {
		IsAuthenticated bool         `json:"isAuthenticated"`
		User            *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(status.Data, &st))
	assert.True(t, st.IsAuthenticated)
	require.NotNil(t, st.User)
	assert.Equal(t, "ann@example.com", st.User.Email)

	anon := api.call("", "authStatus", nil)
	require.NoError(t, json.Unmarshal(anon.Data, &st))
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)

	out := api.call("", "logout", nil)
	require.Empty(t, out.Errors)
	assert.Equal(t, "true", string(out.Data))
	require.Len(t, out.cookies, 1)
	assert.Empty(t, out.cookies[0].Value)
}

func TestLoginIsRateLimited(t *testing.T) {
	api := newTestAPI(t, 2)
	vars := map[string]interface{}{"email": "x@example.com", "password": "password123"}
	api.call("", "login", vars)
	api.call("", "login", vars)
	res := api.call("", "login", vars)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, CodeRateLimited, res.code())
}

func TestClubChallengeFlow(t *testing.T) {
	api := newTestAPI(t, 100)
	adminToken, _ := api.register("admin@example.com", "Ann")
	memberToken, member := api.register("member@example.com", "Ben")
	outsiderToken, _ := api.register("outsider@example.com", "Olga")

	var club models.Club
	api.ok(adminToken, "createClub", map[string]interface{}{"name": "Runners", "isPrivate": false}, &club)

	var membership models.ClubMember
	api.ok(memberToken, "joinClub", map[string]interface{}{"clubId": club.ID}, &membership)
	assert.False(t, membership.IsAdmin)
	assert.Equal(t, member.ID, membership.UserID)

	forbidden := api.call(memberToken, "createChallenge", map[string]interface{}{
		"clubId": club.ID, "title": "Plank", "description": "Hold", "duration": "weekly",
		"startDate": "2026-01-01", "endDate": "2026-01-08", "scoreType": "time",
	})
	assert.Equal(t, CodeForbidden, forbidden.code())

	var ch models.Challenge
	api.ok(adminToken, "createChallenge", map[string]interface{}{
		"clubId": club.ID, "title": "Plank", "description": "Hold", "duration": "weekly",
		"startDate": "2026-01-01", "endDate": "2026-01-08T00:00:00Z", "scoreType": "time",
	}, &ch)
	assert.True(t, ch.IsHigherBetter)
	assert.Equal(t, models.ChallengeStatusActive, ch.Status)

	bad := api.call(memberToken, "submitChallengeEntry", map[string]interface{}{"challengeId": ch.ID, "score": "abc"})
	assert.Equal(t, CodeBadUserInput, bad.code())

	notMember := api.call(outsiderToken, "submitChallengeEntry", map[string]interface{}{"challengeId": ch.ID, "score": "10"})
	assert.Equal(t, CodeForbidden, notMember.code())

	var entry models.ChallengeEntry
	api.ok(memberToken, "submitChallengeEntry", map[string]interface{}{"challengeId": ch.ID, "score": "42"}, &entry)
	assert.Equal(t, "42", entry.Score)

	var got models.Challenge
	api.ok(outsiderToken, "challenge", map[string]interface{}{"id": ch.ID}, &got)
	require.Len(t, got.TopScores, 1)
	assert.Equal(t, "Ben Tester", got.TopScores[0].UserName)

	var mine []models.ChallengeEntry
	api.ok(memberToken, "userChallengeEntries", map[string]interface{}{"challengeId": ch.ID}, &mine)
	assert.Len(t, mine, 1)

	notOwner := api.call(adminToken, "updateChallengeEntry", map[string]interface{}{"id": entry.ID, "score": "50"})
	assert.Equal(t, CodeForbidden, notOwner.code())

	assert.Equal(t, float64(1), operationCount(t, api.metrics, "submitChallengeEntry", codeOK))
	assert.Equal(t, float64(1), operationCount(t, api.metrics, "submitChallengeEntry", CodeBadUserInput))
}

func operationCount(t *testing.T, m *metrics.Metrics, op, code string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "club_challenges_operations_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == op && labels["code"] == code {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
