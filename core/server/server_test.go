package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer() *Server {
	return NewServer(Options{Host: "localhost", Port: 0, BundleFile: "bundle.js", Title: "demo"})
}

func get(t *testing.T, s *Server, path string) (int, string, string) {
	t.Helper()
	resp, err := s.App().Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, resp.Header.Get(fiber.HeaderContentType), string(body)
}

func TestBundleBeforeFirstBuild(t *testing.T) {
	s := newTestServer()

	code, _, body := get(t, s, "/bundle.js")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Contains(t, body, ErrNotBuilt.Error())
}

func TestPublishServesBundle(t *testing.T) {
	s := newTestServer()
	s.Publish(`console.log("hi");`)

	code, contentType, body := get(t, s, "/bundle.js")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, contentType, "javascript")
	assert.Equal(t, `console.log("hi");`, body)
}

func TestFailReplacesBundleUntilNextPublish(t *testing.T) {
	s := newTestServer()
	s.Publish("one")
	s.Fail(errors.New(`failed to resolve module "./nope"`))

	code, _, body := get(t, s, "/bundle.js")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, `failed to resolve module "./nope"`, payload["error"])

	s.Publish("two")
	code, _, body = get(t, s, "/bundle.js")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "two", body)
}

func TestIndexLoadsBundle(t *testing.T) {
	s := newTestServer()

	code, contentType, body := get(t, s, "/")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Contains(t, contentType, "text/html")
	assert.Contains(t, body, `<script src="/bundle.js"></script>`)
	assert.Contains(t, body, "<title>demo</title>")
}

func TestStatus(t *testing.T) {
	s := newTestServer()
	s.Fail(errors.New("boom"))

	_, _, body := get(t, s, StatusPath)
	var status struct {
		Builds int    `json:"builds"`
		OK     bool   `json:"ok"`
		Error  string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, 1, status.Builds)
	assert.False(t, status.OK)
	assert.Equal(t, "boom", status.Error)

	s.Publish("x")
	_, _, body = get(t, s, StatusPath)
	status.Error = ""
	require.NoError(t, json.Unmarshal([]byte(body), &status))
	assert.Equal(t, 2, status.Builds)
	assert.True(t, status.OK)
	assert.Empty(t, status.Error)
}

func TestAddr(t *testing.T) {
	s := NewServer(Options{Host: "127.0.0.1", Port: 8080, BundleFile: "out.js"})
	assert.Equal(t, "127.0.0.1:8080", s.Addr())
}
