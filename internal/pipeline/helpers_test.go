package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/abz/internal/extractor"
	"github.com/roach88/abz/internal/ledger"
	"github.com/roach88/abz/internal/submit"
	"github.com/roach88/abz/internal/testutil"
)

const (
	trackA = "123e4567-e89b-12d3-a456-426614174000"
	trackB = "6f9d0a4e-3b1c-4c2a-9e55-0d7b8f3a2c11"
)

// fakeServer stands in for the submission server.
type fakeServer struct {
	mu sync.Mutex

	// Statuses returned for POST /{id}/low-level, /datasetitem/ and
	// /api/v1/datasets.
	featureStatus int
	itemStatus    int
	datasetStatus int

	features  []string // recording ids, in order
	items     int
	manifests []submit.Manifest
}

func (s *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.URL.Path == "/datasetitem/":
		if s.itemStatus != http.StatusOK {
			w.WriteHeader(s.itemStatus)
			return
		}
		s.items++
		fmt.Fprintf(w, `{"itemuuid": "item-%d"}`, s.items)
	case r.URL.Path == "/api/v1/datasets":
		var m submit.Manifest
		_ = json.Unmarshal(body, &m)
		s.manifests = append(s.manifests, m)
		w.WriteHeader(s.datasetStatus)
		_, _ = io.WriteString(w, `{"success": true, "dataset_id": "ds-1"}`)
	case strings.HasSuffix(r.URL.Path, "/low-level"):
		s.features = append(s.features, strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/low-level"))
		w.WriteHeader(s.featureStatus)
		if s.featureStatus >= 300 {
			_, _ = io.WriteString(w, "rejected")
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (s *fakeServer) submittedFeatures() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.features...)
}

// testEnv wires a Processor to a fake extractor, a real ledger and a fake
// server.
type testEnv struct {
	proc    *Processor
	runner  *extractor.Invoker
	fake    *testutil.FakeExtractor
	ledger  *ledger.Ledger
	server  *fakeServer
	tempDir string
	events  []Event
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	fake := testutil.NewFakeExtractor(t)
	runner := extractor.NewInvoker(fake.Path, map[extractor.ProfileKind]string{
		extractor.ProfileRecordings: "recordings.yaml",
		extractor.ProfileDatasets:   "datasets.yaml",
	})

	l, err := ledger.Open(filepath.Join(t.TempDir(), "filelog.db"),
		ledger.WithRunIDGenerator(testutil.NewFixedRunID("run-1")))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })

	srv := &fakeServer{
		featureStatus: http.StatusOK,
		itemStatus:    http.StatusOK,
		datasetStatus: http.StatusOK,
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	env := &testEnv{
		runner:  runner,
		fake:    fake,
		ledger:  l,
		server:  srv,
		tempDir: t.TempDir(),
	}
	all := append([]Option{
		WithTempDir(env.tempDir),
		WithReporter(ReporterFunc(func(e Event) { env.events = append(env.events, e) })),
	}, opts...)
	env.proc = New(runner, l, submit.NewClient(strings.TrimPrefix(ts.URL, "http://")), all...)
	return env
}

// entries returns every ledger row.
func (e *testEnv) entries(t *testing.T) []ledger.Entry {
	t.Helper()
	rows, err := e.ledger.Entries(t.Context(), ledger.Filter{})
	require.NoError(t, err)
	return rows
}

// requireTempDirEmpty fails if any extractor output was left behind.
func (e *testEnv) requireTempDirEmpty(t *testing.T) {
	t.Helper()
	left, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	require.Empty(t, left, "temporary outputs left behind")
}
