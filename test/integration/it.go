//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type Cfg struct {
	BaseURL        string
	KafkaBootstrap string
	AuditTopic     string
}

func LoadCfg() Cfg {
	return Cfg{
		BaseURL:        getenv("IT_AUTHD_BASE", "http://127.0.0.1:8080"),
		KafkaBootstrap: getenv("IT_BOOTSTRAP", "127.0.0.1:19092"),
		AuditTopic:     getenv("IT_AUDIT_TOPIC", "auth.audit"),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func WaitTCP(t *testing.T, name, addr string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var last error
	for time.Now().Before(deadline) {
		d := net.Dialer{Timeout: 1500 * time.Millisecond}
		c, err := d.Dial("tcp", addr)
		if err == nil {
			_ = c.Close()
			t.Logf("[it] %s ready at %s", name, addr)
			return
		}
		last = err
		time.Sleep(300 * time.Millisecond)
	}
	t.Fatalf("[it] %s not reachable at %s: %v", name, addr, last)
}

func WaitHealth(t *testing.T, url string, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil && resp.StatusCode == 200 {
			_ = resp.Body.Close()
			t.Logf("[it] health OK: %s", url)
			return
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("[it] health failed: %s", url)
}

// HTTPDoJSON posts a JSON body (nil allowed) with an optional bearer token
// and asserts the status code.
func HTTPDoJSON(t *testing.T, method, url, bearer string, body any, want int) []byte {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = strings.NewReader(string(b))
	}
	req, _ := http.NewRequest(method, url, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("[http] %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		t.Fatalf("[http] %s %s: got %d want %d, body=%s", method, url, resp.StatusCode, want, string(b))
	}
	return b
}

type AuditEvent struct {
	ID     string `json:"id"`
	Kind   string `json:"kind"`
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
}

// ReadOneAudit consumes one audit event, or reports false on timeout.
func ReadOneAudit(t *testing.T, bootstrap, topic, group string, timeout time.Duration) (AuditEvent, bool) {
	t.Helper()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{bootstrap},
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	msg, err := r.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return AuditEvent{}, false
		}
		t.Fatalf("[kafka] read %s: %v", topic, err)
	}
	var e AuditEvent
	if err := json.Unmarshal(msg.Value, &e); err != nil {
		t.Fatalf("[kafka] unmarshal audit event: %v", err)
	}
	return e, true
}
