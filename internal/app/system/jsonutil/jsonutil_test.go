package jsonutil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
		wantBody   string
	}{
		{"200 OK with data", http.StatusOK, map[string]string{"message": "hello"}, http.StatusOK, `{"message":"hello"}`},
		{"202 Accepted with id", http.StatusAccepted, map[string]any{"id": nil}, http.StatusAccepted, `{"id":null}`},
		{"nil data", http.StatusOK, nil, http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			JSON(rec, tt.status, tt.data)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", ct)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { BadRequest(w, "bad") }, http.StatusBadRequest, "bad"},
		{"unauthorized", func(w http.ResponseWriter) { Unauthorized(w, "who") }, http.StatusUnauthorized, "who"},
		{"not found", func(w http.ResponseWriter) { NotFound(w, "gone") }, http.StatusNotFound, "gone"},
		{"custom", func(w http.ResponseWriter) { Error(w, http.StatusServiceUnavailable, "later") }, http.StatusServiceUnavailable, "later"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["error"] != tt.msg {
				t.Errorf("error = %q, want %q", body["error"], tt.msg)
			}
		})
	}
}

func TestOKAndAccepted(t *testing.T) {
	rec := httptest.NewRecorder()
	OK(rec, map[string]int{"n": 1})
	if rec.Code != http.StatusOK {
		t.Errorf("OK status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	Accepted(rec, map[string]string{"id": "abc"})
	if rec.Code != http.StatusAccepted {
		t.Errorf("Accepted status = %d", rec.Code)
	}
}

func TestDecode(t *testing.T) {
	type input struct {
		Email string `json:"email"`
	}

	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@x.com"}`))
		var in input
		if err := Decode(httptest.NewRecorder(), r, &in); err != nil {
			t.Fatalf("Decode() error = %v", err)
		}
		if in.Email != "a@x.com" {
			t.Errorf("Email = %q", in.Email)
		}
	})

	t.Run("malformed", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		var in input
		err := Decode(httptest.NewRecorder(), r, &in)
		if err == nil || err.Error() != "malformed JSON body" {
			t.Errorf("error = %v, want malformed JSON body", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var in input
		if err := Decode(httptest.NewRecorder(), r, &in); !errors.Is(err, ErrEmptyBody) {
			t.Errorf("error = %v, want ErrEmptyBody", err)
		}
	})

	t.Run("too large", func(t *testing.T) {
		big := `{"email":"` + strings.Repeat("a", DefaultMaxBody) + `"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		var in input
		err := Decode(httptest.NewRecorder(), r, &in)
		if err == nil || !strings.Contains(err.Error(), "exceeds") {
			t.Errorf("error = %v, want size error", err)
		}
	})
}
