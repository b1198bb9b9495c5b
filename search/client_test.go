package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	RetryBackoff = 10 * time.Millisecond
}

func TestSearchProductsRetriesOnceOn5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var req searchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "red dress", req.Query)
		w.Write([]byte(`{"products":[{"id":"p1","brand":"Zara","name":"Dress","price":"$40","image_url":"x","source":{"k":1}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	products, err := c.SearchProducts(context.Background(), []HistoryItem{{Role: "user", Text: "red dress"}}, "red dress", "tok")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Zara", products[0].Brand)
	assert.JSONEq(t, `{"k":1}`, string(products[0].Source))
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSearchProductsGivesUpAfterSecond5xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SearchProducts(context.Background(), nil, "", "")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSearchProductsNoRetryOn4xx(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/search/public", r.URL.Path)
		http.Error(w, "bad query", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).SearchProducts(context.Background(), nil, "", "")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestProductsByCategory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/categories", r.URL.Path)
		w.Write([]byte(`{"categories":[{"tag":"tops","products":[{"id":"a"}]},{"tag":"shoes","products":[{"id":"b"},{"id":"c"}]}]}`))
	}))
	defer srv.Close()

	cats, err := NewClient(srv.URL+"/").ProductsByCategory(context.Background(), nil, "outfit", "")
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "shoes", cats[1].Tag)
	assert.Len(t, cats[1].Products, 2)
}
