package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresURL(t *testing.T) {
	_, err := NewClient(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestClient_FetchFilterPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Write([]byte("<html>filters</html>"))
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	require.NoError(t, err)

	page, err := client.FetchFilterPage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "<html>filters</html>", page)
}

func TestClient_FetchMenuPage_PostsForm(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "01/01/25", r.PostForm.Get("selMenuDate"))
		assert.Equal(t, "Lunch", r.PostForm.Get("selMeal"))
		assert.Equal(t, "46", r.PostForm.Get("selCampus"))
		w.Write([]byte("menu"))
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	require.NoError(t, err)

	page, err := client.FetchMenuPage(context.Background(), "01/01/25", "Lunch", 46)
	require.NoError(t, err)
	assert.Equal(t, "menu", page)
}

func TestClient_FetchMenuPage_NoFiltersIsGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	require.NoError(t, err)

	_, err = client.FetchMenuPage(context.Background(), "", "", 0)
	require.NoError(t, err)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(Config{URL: server.URL})
	require.NoError(t, err)

	_, err = client.FetchMenuPage(context.Background(), "01/01/25", "Lunch", 46)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := NewClient(Config{URL: url})
	require.NoError(t, err)

	_, err = client.FetchFilterPage(context.Background())
	assert.ErrorIs(t, err, ErrNetworkError)
}
