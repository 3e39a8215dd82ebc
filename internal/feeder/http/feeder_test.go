package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeder_BuffersAndYieldsInPageOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offset := r.URL.Query().Get("offset")
		w.Header().Set("Content-Type", "application/json")
		if offset == "" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"data": []map[string]interface{}{
					{"id": "A", "procurementMethodType": "belowThreshold"},
					{"id": "B", "procurementMethodType": "belowThreshold"},
				},
				"next_page": map[string]string{"offset": "page-2"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, "2.5", "tenders", nil, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, item, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", item.ID)

	_, item, ok, err = f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "B", item.ID)
}

func TestFeeder_WaitsOutEmptyPages(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls < 3 {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": []map[string]interface{}{}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"data": []map[string]interface{}{{"id": "A"}},
		})
	}))
	defer srv.Close()

	f := New(srv.Client(), srv.URL, "2.5", "tenders", map[string]string{"opt_fields": "procurementMethodType"}, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, item, ok, err := f.Next(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", item.ID)
	assert.GreaterOrEqual(t, calls, 3)
}

func TestFeeder_PropagatesTransportError(t *testing.T) {
	f := New(http.DefaultClient, "http://127.0.0.1:0", "2.5", "tenders", nil, 30*time.Second)
	_, _, ok, err := f.Next(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
}
