package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"board-relay/state"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	healthy bool
	snap    state.Snapshot
}

func (f fakeProvider) Snapshot() state.Snapshot { return f.snap }
func (f fakeProvider) Healthy() bool            { return f.healthy }

func TestRouter(t *testing.T) {
	next := time.Unix(1_000_000, 0).UTC()
	cases := []struct {
		name     string
		provider fakeProvider
		path     string
		code     int
	}{
		{"healthy", fakeProvider{healthy: true}, "/healthz", http.StatusOK},
		{"unhealthy", fakeProvider{}, "/healthz", http.StatusServiceUnavailable},
		{"metrics", fakeProvider{}, "/metrics", http.StatusOK},
		{"state", fakeProvider{snap: state.Snapshot{NextPost: next, QueueLen: 3}}, "/state", http.StatusOK},
		{"unknown", fakeProvider{}, "/nope", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewRouter(tc.provider).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tc.path, nil))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestStateReturnsSnapshot(t *testing.T) {
	next := time.Unix(1_000_000, 0).UTC()
	rec := httptest.NewRecorder()

	NewRouter(fakeProvider{snap: state.Snapshot{NextPost: next, QueueLen: 3, CarriedOverDumps: 1.5}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/state", nil))

	var got state.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.QueueLen)
	assert.Equal(t, 1.5, got.CarriedOverDumps)
	assert.True(t, next.Equal(got.NextPost))
}
