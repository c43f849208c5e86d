package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garnizeh/hnjobs/api"
	"github.com/garnizeh/hnjobs/pkg/models"
	"github.com/garnizeh/hnjobs/pkg/repository/mock"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestAuthHandlers(t *testing.T) {
	secret := "testsecret"
	tokenDur := 1 * time.Hour

	tests := []struct {
		name       string
		path       string
		body       any
		prepare    func(m *mock.Mocks)
		wantStatus int
		checkBody  func(t *testing.T, body []byte)
	}{
		{
			name:       "Signup_InvalidRequest",
			path:       "/signup",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_MissingFields_Email",
			path:       "/signup",
			body:       map[string]string{"password": "s3cret"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_MissingFields_Password",
			path:       "/signup",
			body:       map[string]string{"email": "alice@example.com"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signup_Success",
			path:       "/signup",
			body:       map[string]string{"email": "alice@example.com", "password": "s3cret"},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				var ar struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(b, &ar); err != nil {
					t.Fatalf("unmarshal token: %v", err)
				}
				if ar.Token == "" {
					t.Fatalf("empty token")
				}
				if _, err := jwt.Parse(ar.Token, func(token *jwt.Token) (any, error) { return []byte(secret), nil }); err != nil {
					t.Fatalf("invalid token: %v", err)
				}
			},
		},
		{
			name: "Signup_DuplicateEmail",
			path: "/signup",
			body: map[string]string{"email": "dup@example.com", "password": "pw"},
			prepare: func(m *mock.Mocks) {
				m.Admins.CreateErr = fmt.Errorf("unique constraint")
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "Signin_InvalidRequest",
			path:       "/signin",
			body:       "not a json",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Signin_MissingUser",
			path:       "/signin",
			body:       map[string]string{"email": "missing@example.com", "password": "nop"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "Signin_Success",
			path: "/signin",
			body: map[string]string{"email": "bob@example.com", "password": "hunter2"},
			prepare: func(m *mock.Mocks) {
				hash, _ := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.DefaultCost)
				m.Admins.Stored = &models.Admin{ID: 2, Email: "bob@example.com", PasswordHash: string(hash)}
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				var ar struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(b, &ar); err != nil {
					t.Fatalf("unmarshal token: %v", err)
				}
				if ar.Token == "" {
					t.Fatalf("empty token")
				}
			},
		},
		{
			name: "Signin_WrongPassword",
			path: "/signin",
			body: map[string]string{"email": "c@example.com", "password": "wrongpw"},
			prepare: func(m *mock.Mocks) {
				hash, _ := bcrypt.GenerateFromPassword([]byte("rightpw"), bcrypt.DefaultCost)
				m.Admins.Stored = &models.Admin{ID: 3, Email: "c@example.com", PasswordHash: string(hash)}
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Signout_OK",
			path:       "/signout",
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, b []byte) {
				if !bytes.Contains(b, []byte("signed out")) {
					t.Fatalf("unexpected body: %s", string(b))
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mocks := mock.NewMocks()
			if tt.prepare != nil {
				tt.prepare(mocks)
			}
			handler := api.NewAuthHandler(mocks.Admins, secret, tokenDur)

			var bodyReader io.Reader
			if tt.body != nil {
				b, _ := json.Marshal(tt.body)
				bodyReader = bytes.NewReader(b)
			}
			req := httptest.NewRequest(http.MethodPost, tt.path, bodyReader)
			w := httptest.NewRecorder()

			switch tt.path {
			case "/signup":
				handler.Signup(w, req)
			case "/signin":
				handler.Signin(w, req)
			case "/signout":
				handler.Signout(w, req)
			default:
				t.Fatalf("unknown path %s", tt.path)
			}

			res := w.Result()
			defer res.Body.Close()
			data, _ := io.ReadAll(res.Body)
			if res.StatusCode != tt.wantStatus {
				t.Fatalf("%s: expected status %d got %d body=%s", tt.name, tt.wantStatus, res.StatusCode, string(data))
			}
			if tt.checkBody != nil {
				tt.checkBody(t, data)
			}
		})
	}
}
