package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/listdash/internal/listing/domain"
)

func TestFetcher_DecodesEnvelopeAndSendsQuery(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"s3_files": [{"id": 1, "s3key": "a.csv", "workstream": "rlhf"}],
			"page": 1, "pageSize": 25, "pageCount": 4, "total": 90
		}`))
	}))
	defer srv.Close()

	spec, err := domain.LookupTable(domain.TableFiles)
	require.NoError(t, err)
	client := NewClient(srv.URL+"/", "secreto", time.Second, zap.NewNop())
	fetch := Fetcher[domain.FileInfo](client, spec)

	desc := domain.Serialize(spec.InitialQuery(), spec)
	page, err := fetch(context.Background(), desc)
	require.NoError(t, err)

	assert.Equal(t, "/s3files/", gotPath)
	assert.Equal(t, desc.Encode(), gotQuery)
	assert.Equal(t, "Bearer secreto", gotAuth)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "a.csv", page.Items[0].S3Key)
	assert.Equal(t, 90, page.Total)
	assert.Equal(t, 4, page.PageCount)
}

func TestFetcher_PagesFallbackAndMissingItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page": 2, "pageSize": 50, "pages": 3, "total": 120}`))
	}))
	defer srv.Close()

	spec, err := domain.LookupTable(domain.TableLogs)
	require.NoError(t, err)
	fetch := Fetcher[domain.LogEntry](NewClient(srv.URL, "", time.Second, zap.NewNop()), spec)

	page, err := fetch(context.Background(), domain.Serialize(spec.InitialQuery(), spec))
	require.NoError(t, err)
	assert.Equal(t, 3, page.PageCount)
	assert.Equal(t, 2, page.Page)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	spec, err := domain.LookupTable(domain.TableUsers)
	require.NoError(t, err)
	fetch := Fetcher[domain.UserInfo](NewClient(srv.URL, "", time.Second, zap.NewNop()), spec)

	_, err = fetch(context.Background(), domain.Serialize(spec.InitialQuery(), spec))
	var fe *domain.FetchError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusServiceUnavailable, fe.Status)
}

func TestFetcher_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"roles": "no-es-lista"}`))
	}))
	defer srv.Close()

	spec, err := domain.LookupTable(domain.TableRoles)
	require.NoError(t, err)
	fetch := Fetcher[domain.RoleInfo](NewClient(srv.URL, "", time.Second, zap.NewNop()), spec)

	_, err = fetch(context.Background(), domain.Serialize(spec.InitialQuery(), spec))
	assert.Error(t, err)
}
