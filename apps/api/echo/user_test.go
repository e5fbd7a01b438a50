package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/ceresdev/academico/core/academic"
	"github.com/ceresdev/academico/core/user"
	emailsvc "github.com/ceresdev/academico/services/email"
	dummydb "github.com/ceresdev/academico/storage/database/dummy"
)

func Test_userApi_register(t *testing.T) {
	db, _, app := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva", Department: "DComp"})
	db.AddStudent(academic.Student{Matricula: "20240101", Name: "Ana Silva", CourseCode: "CC01", Status: "INATIVO"})

	body := func(matricula, uname, pwd, confirm string) []byte {
		return marchallObj(t, map[string]string{
			"matricula":        matricula,
			"name":             "Jo Silva",
			"username":         uname,
			"email":            uname + "@test.test",
			"password":         pwd,
			"password_confirm": confirm,
		})
	}

	tests := []httpTest{
		{
			name: "password mismatch fails", method: http.MethodPost, path: "/v1/users/register",
			body: body("1001", "josilva", "V3ryS3cretPwd!", "nope"), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown number fails", method: http.MethodPost, path: "/v1/users/register",
			body: body("999999", "ghost", "V3ryS3cretPwd!", "V3ryS3cretPwd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"matricula": user.ErrUnknownMatricula.Error()}),
		},
		{
			name: "teacher registers", method: http.MethodPost, path: "/v1/users/register",
			body: body("1001", "josilva", "V3ryS3cretPwd!", "V3ryS3cretPwd!"), wantCode: http.StatusCreated,
		},
		{
			name: "taken username fails", method: http.MethodPost, path: "/v1/users/register",
			body: body("1001", "josilva", "V3ryS3cretPwd!", "V3ryS3cretPwd!"), wantCode: http.StatusBadRequest,
		},
		{
			name: "inactive student registers with a warning", method: http.MethodPost, path: "/v1/users/register",
			body: body("20240101", "anasilva", "V3ryS3cretPwd!", "V3ryS3cretPwd!"), wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code != http.StatusCreated {
				return
			}
			var acc user.RegisteredAccount
			if err := json.Unmarshal(rec.Body.Bytes(), &acc); err != nil {
				t.Fatalf("unmarshalling response: %v", err)
			}
			switch tt.name {
			case "teacher registers":
				if !acc.User.InGroup(user.GroupTeachers) {
					t.Errorf("groups = %v; want Teachers membership", acc.User.Groups)
				}
				if len(acc.Warnings) != 0 {
					t.Errorf("warnings = %v; want none", acc.Warnings)
				}
			case "inactive student registers with a warning":
				if len(acc.Groups) != 0 {
					t.Errorf("groups = %v; want none", acc.Groups)
				}
				if len(acc.Warnings) != 1 || acc.Warnings[0].Field != "matricula" {
					t.Errorf("warnings = %v; want one matricula warning", acc.Warnings)
				}
			}
		})
	}
}

func Test_userApi_login(t *testing.T) {
	db, usrSvc, app := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})

	usrRepo := dummydb.NewUserRepository(db)
	registerUser(t, usrSvc, "1001", "josilva")

	// a deactivated account
	gone := user.User{Username: "gone", Email: "gone@test.test"}
	gone.SetActive(false)
	if err := gone.SetPassword("V3ryS3cretPwd!"); err != nil {
		t.Fatalf("SetPassword(): %v", err)
	}
	if _, err := usrRepo.CreateUser(context.Background(), gone); err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}

	body := func(uname, pwd string) []byte {
		return marchallObj(t, map[string]string{"username": uname, "password": pwd})
	}

	tests := []httpTest{
		{
			name: "valid credentials", method: http.MethodPost, path: "/v1/users/login",
			body: body("josilva", "V3ryS3cretPwd!"), wantCode: http.StatusOK,
		},
		{
			name: "email works too", method: http.MethodPost, path: "/v1/users/login",
			body: body("josilva@test.test", "V3ryS3cretPwd!"), wantCode: http.StatusOK,
		},
		{
			name: "wrong password", method: http.MethodPost, path: "/v1/users/login",
			body: body("josilva", "nope"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown user", method: http.MethodPost, path: "/v1/users/login",
			body: body("ghost", "V3ryS3cretPwd!"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", method: http.MethodPost, path: "/v1/users/login",
			body: body("gone", "V3ryS3cretPwd!"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "missing fields", method: http.MethodPost, path: "/v1/users/login",
			body: marchallObj(t, map[string]string{}), wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusOK {
				var resp struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if resp.Token == "" {
					t.Error("no token in response")
				}
			}
		})
	}
}

func Test_userApi_tokenRefresh(t *testing.T) {
	db, usrSvc, app := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})
	acc := registerUser(t, usrSvc, "1001", "josilva")

	t.Run("auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("valid token refreshes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, acc.User))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if resp.Token == "" {
			t.Error("no token in response")
		}
	})
}

func Test_userApi_passwordReset(t *testing.T) {
	db, usrSvc, app := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})
	acc := registerUser(t, usrSvc, "1001", "josilva")

	successResp := marchallObj(t, map[string]string{
		"success": "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with instructions to reset your password.",
	})

	t.Run("unknown email still succeeds", func(t *testing.T) {
		before := len(emailsvc.SentMessages)
		tt := httpTest{wantCode: http.StatusOK, wantData: successResp}
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset",
			marchallObj(t, map[string]string{"email": "ghost@test.test"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
		if len(emailsvc.SentMessages) != before {
			t.Error("a reset email was sent for an unknown address")
		}
	})

	t.Run("known email gets a reset mail", func(t *testing.T) {
		before := len(emailsvc.SentMessages)
		tt := httpTest{wantCode: http.StatusOK, wantData: successResp}
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset",
			marchallObj(t, map[string]string{"email": "josilva@test.test"}))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)

		if len(emailsvc.SentMessages) != before+1 {
			t.Fatalf("sent %d messages; want 1", len(emailsvc.SentMessages)-before)
		}
		msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
		if !strings.Contains(msg.TextContent, "password-reset") {
			t.Errorf("no reset link in mail:\n%s", msg.TextContent)
		}
	})

	t.Run("confirm with a valid token", func(t *testing.T) {
		usr, err := dummydb.NewUserRepository(db).GetUserByID(context.Background(), acc.User.ID)
		if err != nil {
			t.Fatalf("GetUserByID(): %v", err)
		}
		token, err := user.MakeToken(usr)
		if err != nil {
			t.Fatalf("MakeToken(): %v", err)
		}

		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm",
			marchallObj(t, map[string]string{
				"uid":              user.EncodeUID(usr),
				"token":            token,
				"password":         "N3wS3cretPwd!",
				"password_confirm": "N3wS3cretPwd!",
			}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		// the new password logs in
		req, rec = newRequest(http.MethodPost, "/v1/users/login",
			marchallObj(t, map[string]string{"username": "josilva", "password": "N3wS3cretPwd!"}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("login with new password: code = %v; want %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("confirm with a bad token", func(t *testing.T) {
		usr, err := dummydb.NewUserRepository(db).GetUserByID(context.Background(), acc.User.ID)
		if err != nil {
			t.Fatalf("GetUserByID(): %v", err)
		}
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm",
			marchallObj(t, map[string]string{
				"uid":              user.EncodeUID(usr),
				"token":            "nope-nope",
				"password":         "N3wS3cretPwd!",
				"password_confirm": "N3wS3cretPwd!",
			}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_userApi_queryGroups(t *testing.T) {
	db, usrSvc, app := setup(t)
	db.AddTeacher(academic.Teacher{Siape: "1001", Name: "Jo Silva"})
	teacher := registerUser(t, usrSvc, "1001", "josilva")

	admin := teacher.User
	admin.Groups = append(admin.Groups, user.GroupAdmins)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodGet, path: "/v1/users/groups",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "admin required", method: http.MethodGet, path: "/v1/users/groups",
			token: getToken(t, teacher.User), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "all groups", method: http.MethodGet, path: "/v1/users/groups",
			token: getToken(t, admin), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if rec.Code == http.StatusOK {
				var groups []user.Group
				if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if len(groups) != len(user.AllGroups) {
					t.Errorf("got %d groups; want %d", len(groups), len(user.AllGroups))
				}
			}
		})
	}
}
