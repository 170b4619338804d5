// ABOUTME: Tests for the storefront CLI
// ABOUTME: Covers log handler output, helpers, and full command runs against a fake API

package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/storefront/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSetupLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "value", rec["key"])
}

func TestColorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)

	logger.With("component", "cart").WithGroup("req").Debug("added", "id", 7)

	out := buf.String()
	assert.Contains(t, out, "DBG")
	assert.Contains(t, out, "added")
	assert.Contains(t, out, "component=cart")
	assert.Contains(t, out, "req.id=7")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestColorHandler_Level(t *testing.T) {
	h := &colorHandler{level: slog.LevelWarn}
	assert.False(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, h.Enabled(context.Background(), slog.LevelError))
}

func TestPrompt(t *testing.T) {
	var w bytes.Buffer
	got := prompt(bufio.NewReader(strings.NewReader("  hunter2 \n")), &w, "Password", "")
	assert.Equal(t, "hunter2", got)
	assert.Equal(t, "Password: ", w.String())

	got = prompt(bufio.NewReader(strings.NewReader("\n")), &w, "City", "Berlin")
	assert.Equal(t, "Berlin", got)
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, bad := range []string{"", "abc", "0", "-3"} {
		_, err := parseID(bad)
		assert.Error(t, err, bad)
	}
}

// fakeAPI serves the endpoints the CLI touches.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized","statusCode":401}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok-" + body.Email})
	})
	mux.HandleFunc("GET /auth/profile", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer tok-") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "email": "a@example.com", "name": "Ada", "role": "customer"})
	})
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]map[string]any{
			{"id": 1, "title": "Shirt", "price": 10, "category": map[string]any{"id": 1, "name": "Clothes"}},
		})
	})
	mux.HandleFunc("GET /products/1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 1, "title": "Shirt", "price": 10, "images": []string{"https://img/1.png"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type cli struct {
	t      *testing.T
	config string
}

func newCLI(t *testing.T, apiURL string) *cli {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("STOREFRONT_DB_PATH", filepath.Join(dir, "state.db"))
	t.Setenv("STOREFRONT_PASSWORD", "")

	path := filepath.Join(dir, "config.yaml")
	content := "api:\n  base_url: \"" + apiURL + "\"\n" +
		"checkout:\n  payment_link: \"https://pay.example.com/b/test\"\n  callback_secret: \"" + testSecret + "\"\n" +
		"logging:\n  level: \"error\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return &cli{t: t, config: path}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(append([]string{"--config", c.config}, args...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func TestCLI_IdentityNamespaces(t *testing.T) {
	c := newCLI(t, fakeAPI(t).URL)

	c.mustRun("cart", "add", "1", "--quantity", "2")
	out := c.mustRun("whoami")
	assert.Contains(t, out, "guest")
	assert.Contains(t, out, "stored:    cart")

	c.mustRun("login", "a@example.com", "--password", "secret")
	out = c.mustRun("whoami")
	assert.Contains(t, out, "identity:  7")
	assert.Contains(t, c.mustRun("cart"), "Cart is empty")

	c.mustRun("logout")
	out = c.mustRun("cart")
	assert.Contains(t, out, "2 items")
}

func TestCLI_LoginFailure(t *testing.T) {
	c := newCLI(t, fakeAPI(t).URL)
	_, err := c.run("login", "a@example.com", "--password", "wrong")
	assert.Error(t, err)
}

func TestCLI_CheckoutFlow(t *testing.T) {
	c := newCLI(t, fakeAPI(t).URL)

	_, err := c.run("checkout", "begin")
	assert.Error(t, err, "empty cart cannot check out")

	c.mustRun("cart", "add", "1", "--quantity", "3")
	out := c.mustRun("checkout", "begin")
	assert.Contains(t, out, "client_reference_id=")

	token := strings.TrimSpace(c.mustRun("checkout", "sign"))
	require.NotEmpty(t, token)

	out = c.mustRun("checkout", "confirm", token)
	assert.Contains(t, out, "Payment confirmed")
	assert.Contains(t, c.mustRun("cart"), "Cart is empty")
	assert.Contains(t, c.mustRun("orders"), "30.00")

	// The same confirmation cannot complete another checkout.
	c.mustRun("cart", "add", "1", "--quantity", "3")
	c.mustRun("checkout", "begin")
	_, err = c.run("checkout", "confirm", token)
	assert.Error(t, err)
}

func TestCLI_Theme(t *testing.T) {
	c := newCLI(t, fakeAPI(t).URL)

	assert.Equal(t, "light\n", c.mustRun("theme"))
	assert.Equal(t, "dark\n", c.mustRun("theme", "toggle"))
	assert.Equal(t, "dark\n", c.mustRun("theme"))

	_, err := c.run("theme", "set", "sepia")
	assert.Error(t, err)
}
