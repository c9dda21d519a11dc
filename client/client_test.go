package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nicolagi/rolodex/client"
	"github.com/nicolagi/rolodex/person"
	"github.com/nicolagi/rolodex/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *client.Client {
	gin.SetMode(gin.TestMode)
	ts := httptest.NewServer(server.New().Handler())
	t.Cleanup(ts.Close)
	return client.New(client.WithAddress(ts.URL), client.WithHTTPClient(ts.Client()))
}

func TestBlobs(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	require.Nil(t, c.UploadBlob(ctx, "people list.txt", []byte("Doe John")))
	text, err := c.BlobText(ctx, "people list.txt")
	require.Nil(t, err)
	assert.Equal(t, "Doe John", text)

	raw, err := c.DownloadBlob(ctx, "people list.txt")
	require.Nil(t, err)
	assert.Equal(t, []byte("Doe John"), raw)

	blobs, err := c.ListBlobs(ctx)
	require.Nil(t, err)
	require.Len(t, blobs, 1)
	assert.Equal(t, "people list.txt", blobs[0].Name)

	require.Nil(t, c.DeleteBlob(ctx, "people list.txt"))
	_, err = c.BlobText(ctx, "people list.txt")
	var se *client.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusInternalServerError, se.Code)
	assert.Equal(t, "Something went wrong with the server", se.Body)

	require.Nil(t, c.UploadBlob(ctx, "a", []byte("a")))
	require.Nil(t, c.DeleteAllBlobs(ctx))
	blobs, err = c.ListBlobs(ctx)
	require.Nil(t, err)
	assert.Empty(t, blobs)
}

func TestRecords(t *testing.T) {
	ctx := context.Background()
	c := newClient(t)

	require.Nil(t, c.UpsertRecords(ctx, []person.Record{
		{"last_name": "Smith", "first_name": "John"},
		{"last_name": "Smith", "first_name": "Jane"},
		{"last_name": "Doe", "first_name": "Jane"},
	}))

	all, err := c.AllRecords(ctx)
	require.Nil(t, err)
	require.Len(t, all, 3)

	ids, err := c.QueryIDs(ctx, "Smith", "")
	require.Nil(t, err)
	assert.Len(t, ids, 2)
	ids, err = c.QueryIDs(ctx, "", "Jane")
	require.Nil(t, err)
	assert.Len(t, ids, 2)
	ids, err = c.QueryIDs(ctx, "Doe", "Jane")
	require.Nil(t, err)
	assert.Len(t, ids, 1)
	_, err = c.QueryIDs(ctx, "", "")
	assert.NotNil(t, err)

	require.Nil(t, c.DeleteAllRecords(ctx))
	all, err = c.AllRecords(ctx)
	require.Nil(t, err)
	assert.Empty(t, all)
}

func TestEmptyUpsertIsRejected(t *testing.T) {
	c := newClient(t)
	err := c.UpsertRecords(context.Background(), []person.Record{})
	var se *client.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Invalid data", se.Body)
}

func TestFetchText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/files/input.txt", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Doe John\n"))
	})
	mux.Handle("/latest", http.RedirectHandler("/files/input.txt", http.StatusFound))
	ts := httptest.NewServer(mux)
	defer ts.Close()
	c := client.New(client.WithHTTPClient(ts.Client()))

	name, text, err := c.FetchText(context.Background(), ts.URL+"/latest")
	require.Nil(t, err)
	assert.Equal(t, "input.txt", name)
	assert.Equal(t, "Doe John\n", text)

	_, _, err = c.FetchText(context.Background(), ts.URL+"/missing.txt")
	var se *client.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
}
