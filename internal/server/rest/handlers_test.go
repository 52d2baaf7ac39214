package rest

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivationFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	login := `{"email":"a@x.com","password":"secret1"}`

	r := ts.do(t, http.MethodPost, "/register", `{"name":"Ann","email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, r.status, string(r.body))
	body := r.json(t)
	assert.Equal(t, "Registration successful. Please wait for approval", body["message"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, "default", body["group"])
	assert.NotEmpty(t, body["_id"])
	assert.NotEmpty(t, body["token"])
	assert.NotContains(t, string(r.body), "password")
	require.NotNil(t, r.cookie)
	assert.True(t, r.cookie.HttpOnly)

	r = ts.do(t, http.MethodPost, "/login", login, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, common.Message(common.ErrPendingApproval, ""), r.json(t)["message"])
	assert.Nil(t, r.cookie)

	r = ts.do(t, http.MethodPut, "/approve/"+ts.mail.link(t, "/approve-user/"), "", admin)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	assert.Equal(t, true, r.json(t)["approved"])

	r = ts.do(t, http.MethodPost, "/login", login, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, common.Message(common.ErrPendingConfirmation, ""), r.json(t)["message"])

	r = ts.do(t, http.MethodGet, "/completeRegistration/"+ts.mail.link(t, "/complete-registration/"), "", nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	assert.Equal(t, true, r.json(t)["emailConfirmed"])

	r = ts.do(t, http.MethodPost, "/login", login, nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	require.NotNil(t, r.cookie)
	assert.NotEmpty(t, r.cookie.Value)

	r = ts.do(t, http.MethodGet, "/getuser", "", r.cookie)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "a@x.com", r.json(t)["email"])
}

func TestPasswordResetFlow(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	ts.activate(t, admin, "a@x.com", "secret1")

	r := ts.do(t, http.MethodPost, "/forgotPassword", `{"email":"a@x.com"}`, nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	assert.Equal(t, map[string]any{"success": true, "message": "Reset Email Sent"}, r.json(t))
	r1 := ts.mail.link(t, "/resetpassword/")
	assert.NotContains(t, string(r.body), r1)

	r = ts.do(t, http.MethodPost, "/forgotPassword", `{"email":"a@x.com"}`, nil)
	require.Equal(t, http.StatusOK, r.status)
	r2 := ts.mail.link(t, "/resetpassword/")
	require.NotEqual(t, r1, r2)

	r = ts.do(t, http.MethodPost, "/resetPassword/"+r1, `{"password":"newpass"}`, nil)
	assert.Equal(t, http.StatusNotFound, r.status)

	r = ts.do(t, http.MethodPost, "/resetPassword/"+r2, `{"password":"newpass"}`, nil)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	assert.Equal(t, "Password Reset Successful, Please Login", r.json(t)["message"])

	r = ts.do(t, http.MethodPost, "/resetPassword/"+r2, `{"password":"another"}`, nil)
	assert.Equal(t, http.StatusNotFound, r.status)

	r = ts.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"newpass"}`, nil)
	assert.Equal(t, http.StatusOK, r.status)

	r = ts.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"secret1"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)
}

func TestResetPassword_Expired(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	ts.activate(t, admin, "a@x.com", "secret1")

	r := ts.do(t, http.MethodPost, "/forgotPassword", `{"email":"a@x.com"}`, nil)
	require.Equal(t, http.StatusOK, r.status)
	secret := ts.mail.link(t, "/resetpassword/")

	ts.clock.Advance(31 * time.Minute)

	r = ts.do(t, http.MethodPost, "/resetPassword/"+secret, `{"password":"newpass"}`, nil)
	assert.Equal(t, http.StatusNotFound, r.status)
	assert.Equal(t, "Invalid or Expired Token", r.json(t)["message"])
}

func TestForgotPassword_UnknownEmail(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodPost, "/forgotPassword", `{"email":"nobody@x.com"}`, nil)
	assert.Equal(t, http.StatusNotFound, r.status)
	assert.Equal(t, "User does not exist", r.json(t)["message"])
}

func TestRegister_Errors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing fields", `{"email":"a@x.com"}`, http.StatusBadRequest},
		{"short password", `{"name":"Ann","email":"a@x.com","password":"12345"}`, http.StatusBadRequest},
		{"bad email", `{"name":"Ann","email":"nope","password":"secret1"}`, http.StatusBadRequest},
		{"malformed json", `{"name":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			r := ts.do(t, http.MethodPost, "/register", tt.body, nil)
			assert.Equal(t, tt.want, r.status, string(r.body))
			assert.NotEmpty(t, r.json(t)["message"])
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t)
	body := `{"name":"Ann","email":"a@x.com","password":"secret1"}`

	r := ts.do(t, http.MethodPost, "/register", body, nil)
	require.Equal(t, http.StatusCreated, r.status)

	r = ts.do(t, http.MethodPost, "/register", body, nil)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Email has already been registered", r.json(t)["message"])
}

func TestLogin_UnknownEmail(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodPost, "/login", `{"email":"nobody@x.com","password":"secret1"}`, nil)
	assert.Equal(t, http.StatusNotFound, r.status)
	assert.Equal(t, "User not found, please signup", r.json(t)["message"])
}

func TestApprove_Errors(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)

	r := ts.do(t, http.MethodPost, "/register", `{"name":"Ann","email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, r.status)
	user := r.cookie
	token := ts.mail.link(t, "/approve-user/")

	r = ts.do(t, http.MethodPut, "/approve/"+token, "", nil)
	assert.Equal(t, http.StatusUnauthorized, r.status)

	r = ts.do(t, http.MethodPut, "/approve/"+token, "", user)
	assert.Equal(t, http.StatusForbidden, r.status)
	assert.Equal(t, "Not authorized as an admin", r.json(t)["message"])

	r = ts.do(t, http.MethodPut, "/approve/not-a-token", "", admin)
	assert.Equal(t, http.StatusBadRequest, r.status)

	r = ts.do(t, http.MethodPut, "/approve/"+token, "", admin)
	require.Equal(t, http.StatusOK, r.status)

	r = ts.do(t, http.MethodPut, "/approve/"+token, "", admin)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "User is already approved", r.json(t)["message"])

	// a confirmation token does not approve
	r = ts.do(t, http.MethodPut, "/approve/"+ts.mail.link(t, "/complete-registration/"), "", admin)
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestCompleteRegistration_Errors(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	ts.activate(t, admin, "a@x.com", "secret1")

	r := ts.do(t, http.MethodGet, "/completeRegistration/"+ts.mail.link(t, "/complete-registration/"), "", nil)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Email is already confirmed", r.json(t)["message"])

	r = ts.do(t, http.MethodGet, "/completeRegistration/garbage", "", nil)
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestLogoutAndLoggedIn(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)

	r := ts.do(t, http.MethodGet, "/loggedIn", "", admin)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "true", string(r.body))

	r = ts.do(t, http.MethodGet, "/loggedIn", "", nil)
	assert.Equal(t, "false", string(r.body))

	r = ts.do(t, http.MethodGet, "/loggedIn", "", &http.Cookie{Name: "token", Value: "garbage"})
	assert.Equal(t, "false", string(r.body))

	r = ts.do(t, http.MethodGet, "/logout", "", admin)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Successfully Logged Out", r.json(t)["message"])
	require.NotNil(t, r.cookie)
	assert.Empty(t, r.cookie.Value)
}

func TestLoggedIn_FalseForUnapproved(t *testing.T) {
	ts := newTestServer(t)

	r := ts.do(t, http.MethodPost, "/register", `{"name":"Ann","email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, r.status)

	r = ts.do(t, http.MethodGet, "/loggedIn", "", r.cookie)
	assert.Equal(t, "false", string(r.body))
}

func TestSessionExpires(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)

	ts.clock.Advance(25 * time.Hour)

	r := ts.do(t, http.MethodGet, "/getuser", "", admin)
	assert.Equal(t, http.StatusUnauthorized, r.status)
	assert.Equal(t, "Not authorized, please login", r.json(t)["message"])
}

func TestProtectedRoutes_RequireSession(t *testing.T) {
	ts := newTestServer(t)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/getuser"},
		{http.MethodPatch, "/updateUser"},
		{http.MethodPatch, "/changePassword"},
		{http.MethodGet, "/pendingUsers"},
		{http.MethodGet, "/approvedUsers"},
		{http.MethodGet, "/admingetuser/x"},
	} {
		r := ts.do(t, tc.method, tc.path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, r.status, tc.path)
		assert.Equal(t, "Not authorized, please login", r.json(t)["message"], tc.path)
	}
}

func TestUpdateUser(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	ts.activate(t, admin, "a@x.com", "secret1")

	r := ts.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, r.status)
	session := r.cookie

	r = ts.do(t, http.MethodPatch, "/updateUser", `{"name":"Annie","bio":"hello","email":"b@x.com"}`, session)
	require.Equal(t, http.StatusOK, r.status, string(r.body))
	body := r.json(t)
	assert.Equal(t, "Annie", body["name"])
	assert.Equal(t, "hello", body["bio"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "000-0000000", body["phone"])

	long := make([]byte, 251)
	for i := range long {
		long[i] = 'b'
	}
	r = ts.do(t, http.MethodPatch, "/updateUser", `{"bio":"`+string(long)+`"}`, session)
	assert.Equal(t, http.StatusBadRequest, r.status)
}

func TestChangePassword(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)
	ts.activate(t, admin, "a@x.com", "secret1")

	r := ts.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, r.status)
	session := r.cookie

	r = ts.do(t, http.MethodPatch, "/changePassword", `{"oldPassword":"wrong1","password":"newpass"}`, session)
	assert.Equal(t, http.StatusBadRequest, r.status)
	assert.Equal(t, "Old password is incorrect", r.json(t)["message"])

	r = ts.do(t, http.MethodPatch, "/changePassword", `{"oldPassword":"secret1","password":"newpass"}`, session)
	require.Equal(t, http.StatusOK, r.status, string(r.body))

	r = ts.do(t, http.MethodPost, "/login", `{"email":"a@x.com","password":"newpass"}`, nil)
	assert.Equal(t, http.StatusOK, r.status)
}

func TestAdminListings(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminSession(t)

	r := ts.do(t, http.MethodPost, "/register", `{"name":"Ann","email":"a@x.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, r.status)
	id := r.json(t)["_id"].(string)

	r = ts.do(t, http.MethodGet, "/pendingUsers", "", admin)
	require.Equal(t, http.StatusOK, r.status)
	var pending []map[string]any
	require.NoError(t, json.Unmarshal(r.body, &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, "a@x.com", pending[0]["email"])
	assert.Equal(t, false, pending[0]["approved"])
	assert.Equal(t, false, pending[0]["emailConfirmed"])
	assert.NotContains(t, string(r.body), "argon2")

	r = ts.do(t, http.MethodGet, "/approvedUsers", "", admin)
	require.Equal(t, http.StatusOK, r.status)
	var approved []map[string]any
	require.NoError(t, json.Unmarshal(r.body, &approved))
	require.Len(t, approved, 1)
	assert.Equal(t, "root@x.com", approved[0]["email"])

	r = ts.do(t, http.MethodGet, "/admingetuser/"+id, "", admin)
	require.Equal(t, http.StatusOK, r.status)
	assert.Equal(t, "Ann", r.json(t)["name"])

	r = ts.do(t, http.MethodGet, "/admingetuser/00000000-0000-0000-0000-000000000000", "", admin)
	assert.Equal(t, http.StatusNotFound, r.status)

	r = ts.do(t, http.MethodGet, "/admingetuser/not-a-uuid", "", admin)
	assert.Equal(t, http.StatusNotFound, r.status)
}
