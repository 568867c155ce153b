package rest_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nuln/userstore"
	"github.com/nuln/userstore/catalog/rest"
)

func TestRegisterDataProduct(t *testing.T) {
	var got userstore.DataProduct
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/data-products", r.URL.Path)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		assert.Equal(t, "seagrid", r.Header.Get("X-Gateway-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"productUri":"airavata-dp://42"}`))
	}))
	defer srv.Close()

	c := rest.New(rest.Config{Endpoint: srv.URL + "/api/"}, "seagrid").WithToken("s3cret")
	uri, err := c.RegisterDataProduct(context.Background(), &userstore.DataProduct{
		GatewayID:   "seagrid",
		OwnerName:   "alice",
		ProductName: "a.txt",
		Type:        userstore.DataProductFile,
		Metadata:    map[string]string{userstore.MetadataMimeType: "text/plain"},
		Replicas: []userstore.ReplicaLocation{{
			Category: userstore.GatewayDataStore,
			FilePath: "file://host:/data/alice/a.txt",
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, "airavata-dp://42", uri)
	assert.Equal(t, "alice", got.OwnerName)
	assert.Equal(t, "text/plain", got.ContentType())
	require.Len(t, got.Replicas, 1)
	assert.Equal(t, "file://host:/data/alice/a.txt", got.Replicas[0].FilePath)
}

func TestRegisterDataProduct_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"not authorized"}`))
	}))
	defer srv.Close()

	c := rest.New(rest.Config{Endpoint: srv.URL}, "seagrid")
	_, err := c.RegisterDataProduct(context.Background(), &userstore.DataProduct{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "not authorized")
}

func TestRegisterDataProduct_EmptyURI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := rest.New(rest.Config{Endpoint: srv.URL}, "seagrid")
	_, err := c.RegisterDataProduct(context.Background(), &userstore.DataProduct{})
	assert.Error(t, err)
}

func TestRegisterDataProduct_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c := rest.New(rest.Config{Endpoint: srv.URL}, "seagrid")
	_, err := c.RegisterDataProduct(context.Background(), &userstore.DataProduct{})
	assert.Error(t, err)
}
