package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite runs tests against an in-process fake of the Domo
// API. Routes are registered per test with Handle.
type IntegrationTestSuite struct {
	suite.Suite
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string

	server *httptest.Server
	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
}

// SetupSuite starts the fake API server
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 5*time.Minute)

	tempDir, err := os.MkdirTemp("", "nebula-domo-test-*")
	require.NoError(s.T(), err)
	s.tempDir = tempDir

	s.server = httptest.NewServer(http.HandlerFunc(s.serve))
}

// TearDownSuite stops the server and removes temporary files
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	s.server.Close()
	if s.tempDir != "" {
		os.RemoveAll(s.tempDir)
	}
}

// SetupTest clears the routes registered by the previous test
func (s *IntegrationTestSuite) SetupTest() {
	s.mu.Lock()
	s.routes = map[string]http.HandlerFunc{}
	s.hits = map[string]int{}
	s.mu.Unlock()
}

// Handle registers h for "METHOD /path" on the fake API. The path is
// matched without the query string.
func (s *IntegrationTestSuite) Handle(pattern string, h http.HandlerFunc) {
	s.mu.Lock()
	s.routes[pattern] = h
	s.mu.Unlock()
}

// Hits returns how many times pattern was served
func (s *IntegrationTestSuite) Hits(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[pattern]
}

// BaseURL is the API root of the fake server
func (s *IntegrationTestSuite) BaseURL() string {
	return s.server.URL + "/api"
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the temporary directory path
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// ReadTempFile reads a file written under TempDir
func (s *IntegrationTestSuite) ReadTempFile(name string) []byte {
	data, err := os.ReadFile(filepath.Join(s.tempDir, name))
	require.NoError(s.T(), err)
	return data
}

func (s *IntegrationTestSuite) serve(w http.ResponseWriter, r *http.Request) {
	pattern := r.Method + " " + r.URL.Path

	s.mu.Lock()
	h, ok := s.routes[pattern]
	if ok {
		s.hits[pattern]++
	}
	s.mu.Unlock()

	if !ok {
		_, _ = io.Copy(io.Discard, r.Body)
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}
