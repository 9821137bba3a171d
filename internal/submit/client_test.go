package submit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordedRequest captures what the test server received.
type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        string
}

func newTestServer(t *testing.T, status int, body string) (*Client, *[]recordedRequest) {
	t.Helper()
	var reqs []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		reqs = append(reqs, recordedRequest{
			Method:      r.Method,
			Path:        r.URL.Path,
			ContentType: r.Header.Get("Content-Type"),
			Body:        string(data),
		})
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return NewClient(strings.TrimPrefix(srv.URL, "http://")), &reqs
}

func TestSubmitFeatures_Success(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusCreated, http.StatusNoContent} {
		client, reqs := newTestServer(t, status, "")

		err := client.SubmitFeatures(context.Background(), "123e4567-e89b-12d3-a456-426614174000", []byte(`{"a":1}`))
		require.NoError(t, err, "status %d", status)

		require.Len(t, *reqs, 1)
		got := (*reqs)[0]
		assert.Equal(t, http.MethodPost, got.Method)
		assert.Equal(t, "/123e4567-e89b-12d3-a456-426614174000/low-level", got.Path)
		assert.Equal(t, "application/json", got.ContentType)
		assert.JSONEq(t, `{"a":1}`, got.Body)
	}
}

func TestSubmitFeatures_HTTPError(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadRequest, "duplicate submission\n")

	err := client.SubmitFeatures(context.Background(), "id", []byte(`{}`))
	require.Error(t, err)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	assert.Equal(t, "duplicate submission\n", httpErr.Body)
	assert.Contains(t, err.Error(), "status 400: duplicate submission")
}

func TestSubmitFeatures_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	host := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	err := NewClient(host).SubmitFeatures(context.Background(), "id", []byte(`{}`))
	require.Error(t, err)

	var httpErr *HTTPError
	assert.NotErrorAs(t, err, &httpErr)
	assert.Contains(t, err.Error(), "submit features")
}

func TestSubmitItem(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    string
		wantErr string
	}{
		{"ok", http.StatusOK, `{"itemuuid": "item-1"}`, "item-1", ""},
		{"created is not accepted", http.StatusCreated, `{"itemuuid": "item-1"}`, "", "status 201"},
		{"server error", http.StatusInternalServerError, "boom", "", "status 500"},
		{"not json", http.StatusOK, "item-1", "", "decode response"},
		{"missing id", http.StatusOK, `{"other": 1}`, "", "no itemuuid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, reqs := newTestServer(t, tt.status, tt.body)

			got, err := client.SubmitItem(context.Background(), []byte(`{"lowlevel":{}}`))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Empty(t, got)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			require.Len(t, *reqs, 1)
			assert.Equal(t, "/datasetitem/", (*reqs)[0].Path)
			assert.JSONEq(t, `{"lowlevel":{}}`, (*reqs)[0].Body)
		})
	}
}

func TestSubmitDataset_Success(t *testing.T) {
	client, reqs := newTestServer(t, http.StatusOK, `{"success": true, "dataset_id": "d-1"}`)

	m := NewManifest("birds")
	m.AddClass(Class{Name: "crow", Recordings: []string{"i-1"}})

	resp, err := client.SubmitDataset(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, map[string]any{"success": true, "dataset_id": "d-1"}, resp.Body)

	require.Len(t, *reqs, 1)
	assert.Equal(t, "/api/v1/datasets", (*reqs)[0].Path)

	var sent Manifest
	require.NoError(t, json.Unmarshal([]byte((*reqs)[0].Body), &sent))
	assert.Equal(t, *m, sent)
}

func TestSubmitDataset_ErrorKeepsResponse(t *testing.T) {
	client, _ := newTestServer(t, http.StatusBadRequest, "bad manifest")

	resp, err := client.SubmitDataset(context.Background(), NewManifest("x"))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
	assert.Equal(t, "bad manifest", resp.Body)

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, "/api/v1/datasets", strings.TrimPrefix(httpErr.URL, "http://"+client.Host))
}

func TestHTTPError_EmptyBody(t *testing.T) {
	err := &HTTPError{Method: "POST", URL: "http://h/x", Status: 502}
	assert.Equal(t, "POST http://h/x: status 502", err.Error())
}
