package channelclient

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(t *testing.T, server *httptest.Server, cfg Config) *Client {
	t.Helper()
	cfg.APIKey = "key"
	cfg.BaseURL = server.URL
	if cfg.Backoff == 0 {
		cfg.Backoff = time.Millisecond
	}
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Fatalf("unexpected method %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
			t.Fatalf("missing auth header")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"dm_01H","status":"queued"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	receipt, err := client.SendMessage(context.Background(), SendMessageRequest{
		From: "+15553334444",
		To:   "+15552223333",
		Body: "hello",
	})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if receipt.MessageID != "dm_01H" || receipt.Status != "queued" {
		t.Fatalf("unexpected receipt: %#v", receipt)
	}
}

func TestSendMessageValidation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("server should not be reached")
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{})
	if _, err := client.SendMessage(context.Background(), SendMessageRequest{To: "+1555"}); err == nil {
		t.Fatalf("expected empty-body validation error")
	}
	if _, err := client.SendMessage(context.Background(), SendMessageRequest{Body: "hi"}); err == nil {
		t.Fatalf("expected missing-destination validation error")
	}
}

func TestSendMessageRetriesOn5xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":"dm_02H","status":"queued"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{MaxRetries: 2})
	receipt, err := client.SendMessage(context.Background(), SendMessageRequest{
		To:   "+15552223333",
		Body: "retry me",
	})
	if err != nil {
		t.Fatalf("send message: %v", err)
	}
	if receipt.MessageID != "dm_02H" {
		t.Fatalf("unexpected receipt: %#v", receipt)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 calls, got %d", calls.Load())
	}
}

func TestSendMessageDoesNotRetryOn4xx(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"title":"invalid destination"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server, Config{MaxRetries: 3})
	_, err := client.SendMessage(context.Background(), SendMessageRequest{
		To:   "+15552223333",
		Body: "nope",
	})
	if err == nil || !strings.Contains(err.Error(), "invalid destination") {
		t.Fatalf("expected api error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected single call, got %d", calls.Load())
	}
}

func signBody(secret, ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts + "." + string(body)))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	client, err := New(Config{APIKey: "key", BaseURL: "https://channel.example", WebhookSecret: "hush"})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	body := []byte(`{"deliveryId":"d-1"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	if err := client.VerifyWebhookSignature(ts, signBody("hush", ts, body), body); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
	if err := client.VerifyWebhookSignature(ts, signBody("wrong", ts, body), body); err == nil {
		t.Fatalf("expected signature mismatch")
	}
	if err := client.VerifyWebhookSignature("", "sig", body); err == nil {
		t.Fatalf("expected missing timestamp error")
	}
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	if err := client.VerifyWebhookSignature(stale, signBody("hush", stale, body), body); err == nil {
		t.Fatalf("expected skew rejection")
	}
}
