package zonesync

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"
)

type fakeStatusProvider struct {
	shards map[uint32]ShardStatus
}

func (f *fakeStatusProvider) ShardStatus(shardID uint32) (ShardStatus, bool) {
	s, ok := f.shards[shardID]

	return s, ok
}

func (f *fakeStatusProvider) ShardIDs() []uint32 {
	ids := make([]uint32, 0, len(f.shards))

	for id := range f.shards {
		ids = append(ids, id)
	}

	return ids
}

func newTestRouter() (*mux.Router, *fakeStatusProvider) {
	provider := &fakeStatusProvider{shards: map[uint32]ShardStatus{
		0: {ShardID: 0, State: "IncrementalSync", Marker: "abc"},
	}}

	router := mux.NewRouter()
	(&AdminEndpoint{Status: provider}).Attach(router)

	return router, provider
}

func TestHealthzReturnsOK(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestShardStatusByID(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/status/0", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var status ShardStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	require.Equal(t, "abc", status.Marker)
}

func TestShardStatusUnknownReturnsNotFound(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/status/7", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestShardStatusListAll(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var statuses []ShardStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
	require.Len(t, statuses, 1)
}
