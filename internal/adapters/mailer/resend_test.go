package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"recipe-digest/internal/domain"
)

func TestResendSend(t *testing.T) {
	var got sendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails" || r.Header.Get("Authorization") != "Bearer re_key" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	m := NewResend("re_key", srv.URL, time.Second)
	err := m.Send(context.Background(), domain.Email{From: "recipes@example.com", To: "a@example.com", Subject: "s", HTML: "<p>h</p>", Text: "h"})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(got.To) != 1 || got.To[0] != "a@example.com" || got.From != "recipes@example.com" || got.HTML != "<p>h</p>" {
		t.Fatalf("неожиданное тело запроса: %+v", got)
	}
}

func TestResendRecipientError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"Invalid to field"}`))
	}))
	defer srv.Close()

	err := NewResend("re_key", srv.URL, time.Second).Send(context.Background(), domain.Email{To: "bad"})
	if err == nil || errors.Is(err, domain.ErrTransportUnavailable) {
		t.Fatalf("ожидали ошибку получателя, получили %v", err)
	}
}

func TestResendAuthErrorIsTransportLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"name":"missing_api_key","message":"Missing API key"}`))
	}))
	defer srv.Close()

	err := NewResend("re_key", srv.URL, time.Second).Send(context.Background(), domain.Email{To: "a@example.com"})
	if !errors.Is(err, domain.ErrTransportUnavailable) {
		t.Fatalf("ожидали ErrTransportUnavailable, получили %v", err)
	}
	if err := NewResend("", srv.URL, time.Second).Send(context.Background(), domain.Email{}); !errors.Is(err, domain.ErrTransportUnavailable) {
		t.Fatalf("без ключа транспорт недоступен")
	}
}

func TestResendForbiddenRecipientIsNotTransportLevel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"You can only send testing emails to your own email address"}`))
	}))
	defer srv.Close()

	err := NewResend("re_key", srv.URL, time.Second).Send(context.Background(), domain.Email{To: "b@example.com"})
	if err == nil || errors.Is(err, domain.ErrTransportUnavailable) {
		t.Fatalf("ожидали ошибку получателя, получили %v", err)
	}
	if !strings.Contains(err.Error(), "testing emails") {
		t.Fatalf("ожидали текст ошибки API, получили %v", err)
	}
}

func TestResendForbiddenAccountIsTransportLevel(t *testing.T) {
	cases := []string{
		`{"name":"restricted_api_key","message":"This API key is restricted to only send emails"}`,
		`{"name":"invalid_api_key","message":"API key is invalid"}`,
		`{"name":"validation_error","message":"The example.com domain is not verified. Please, add and verify your domain"}`,
	}
	for _, body := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(body))
		}))
		err := NewResend("re_key", srv.URL, time.Second).Send(context.Background(), domain.Email{To: "a@example.com"})
		srv.Close()
		if !errors.Is(err, domain.ErrTransportUnavailable) {
			t.Fatalf("ожидали ErrTransportUnavailable для %s, получили %v", body, err)
		}
	}
}
