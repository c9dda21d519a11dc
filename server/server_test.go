package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nicolagi/rolodex/person"
	"github.com/nicolagi/rolodex/server"
	"github.com/nicolagi/rolodex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// countingTable counts calls reaching the table.
type countingTable struct {
	*storage.InMemoryTable
	calls int
}

func (t *countingTable) Ensure(ctx context.Context) error {
	t.calls++
	return t.InMemoryTable.Ensure(ctx)
}

func (t *countingTable) Upsert(ctx context.Context, r person.Record, newID string) (string, error) {
	t.calls++
	return t.InMemoryTable.Upsert(ctx, r, newID)
}

// brokenContainer fails every operation with a revealing message.
type brokenContainer struct {
	*storage.InMemoryContainer
}

var errSecret = errors.New("connection string AccountKey=hunter2 rejected")

func (brokenContainer) Walk(context.Context, func(string) error) error { return errSecret }

type fixture struct {
	t       *testing.T
	handler http.Handler
	table   *countingTable
}

func newFixture(t *testing.T, opts ...server.Option) *fixture {
	table := &countingTable{InMemoryTable: storage.NewInMemoryTable()}
	opts = append([]server.Option{
		server.WithAppName("Test Rolodex"),
		server.WithBlobs(storage.NewBlobs(storage.NewInMemoryContainer(), nil)),
		server.WithDocuments(storage.NewDocuments(table, nil)),
	}, opts...)
	return &fixture{
		t:       t,
		handler: server.New(opts...).Handler(),
		table:   table,
	}
}

func (f *fixture) do(method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) upload(name, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	require.Nil(f.t, err)
	_, err = part.Write([]byte(content))
	require.Nil(f.t, err)
	require.Nil(f.t, w.Close())
	return f.do(http.MethodPost, "/blob/upload", &body, w.FormDataContentType())
}

func TestBlobRoutes(t *testing.T) {
	f := newFixture(t)

	rec := f.upload("people.txt", "Doe John city=Seattle\n")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Uploaded blob successfully", rec.Body.String())

	rec = f.do(http.MethodGet, "/blob/text/people.txt", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Doe John city=Seattle\n", rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	rec = f.do(http.MethodGet, "/blob/people.txt", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Doe John city=Seattle\n", rec.Body.String())

	rec = f.do(http.MethodGet, "/blob/all", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"name":"people.txt","content":"Doe John city=Seattle\n"}]`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/blob/people.txt", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted blob successfully", rec.Body.String())

	f.upload("a.txt", "a")
	f.upload("b.txt", "b")
	rec = f.do(http.MethodDelete, "/blob/all", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted all blobs successfully", rec.Body.String())
	rec = f.do(http.MethodGet, "/blob/all", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUploadRequiresFile(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/blob/upload", strings.NewReader("no form"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid blob data", rec.Body.String())

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.Nil(t, w.WriteField("other", "value"))
	require.Nil(t, w.Close())
	rec = f.do(http.MethodPost, "/blob/upload", &body, w.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMissingBlobIsServerError(t *testing.T) {
	f := newFixture(t)
	for _, target := range []string{"/blob/nope.txt", "/blob/text/nope.txt"} {
		rec := f.do(http.MethodGet, target, nil, "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code, target)
		assert.Equal(t, "Something went wrong with the server", rec.Body.String(), target)
	}
}

func TestBackendErrorsDoNotLeak(t *testing.T) {
	f := newFixture(t, server.WithBlobs(storage.NewBlobs(brokenContainer{storage.NewInMemoryContainer()}, nil)))
	rec := f.do(http.MethodGet, "/blob/all", nil, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Something went wrong with the server", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestRecordRoutes(t *testing.T) {
	f := newFixture(t)

	body := `[
		{"last_name": "Smith", "first_name": "John", "city": "Seattle"},
		{"last_name": "Smith", "first_name": "Jane"},
		{"first_name": "Nolast"},
		"not an object"
	]`
	rec := f.do(http.MethodPost, "/cosmos/all", strings.NewReader(body), "application/json")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Created all items successfully", rec.Body.String())

	rec = f.do(http.MethodGet, "/cosmos/all", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []map[string]interface{}
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &all))
	require.Len(t, all, 2)
	ids := map[string]string{}
	for _, r := range all {
		ids[r["first_name"].(string)] = r["id"].(string)
	}

	rec = f.do(http.MethodGet, "/cosmos/all?last_name=Smith&first_name=John", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered []string
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Equal(t, []string{ids["John"]}, filtered)

	rec = f.do(http.MethodGet, "/cosmos/all?first_name=Jane", nil, "")
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &filtered))
	assert.Equal(t, []string{ids["Jane"]}, filtered)

	rec = f.do(http.MethodGet, "/cosmos/all?last_name=Nobody", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/cosmos/all", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Deleted all items successfully", rec.Body.String())
	rec = f.do(http.MethodGet, "/cosmos/all", nil, "")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestUpsertSingleObject(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/cosmos/all", strings.NewReader(`{"last_name":"Doe","first_name":"John"}`), "application/json")
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = f.do(http.MethodGet, "/cosmos/all?last_name=Doe", nil, "")
	var ids []string
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &ids))
	assert.Len(t, ids, 1)
}

func TestUpsertRejectsEmptyBodies(t *testing.T) {
	for _, body := range []string{"", "   ", "[]", "{}", "not json", "[1,"} {
		f := newFixture(t)
		rec := f.do(http.MethodPost, "/cosmos/all", strings.NewReader(body), "application/json")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%q", body)
		assert.Equal(t, "Invalid data", rec.Body.String())
		assert.Zero(t, f.table.calls, "%q reached the backend", body)
	}
}

func TestLandingPage(t *testing.T) {
	f := newFixture(t, server.WithSourceURL("https://example.com/people.txt"))
	rec := f.do(http.MethodGet, "/", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "<title>Test Rolodex</title>")
	assert.Contains(t, rec.Body.String(), `data-source="https://example.com/people.txt"`)

	rec = f.do(http.MethodGet, "/js/index.js", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/cosmos/all")
}

func TestServeAndShutdown(t *testing.T) {
	s := server.New(server.WithAddress("localhost:0"))
	addr, err := s.Listen()
	require.Nil(t, err)
	done := make(chan error)
	go func() {
		done <- s.Serve()
	}()
	res, err := http.Get("http://" + addr + "/cosmos/all")
	require.Nil(t, err)
	_ = res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	require.Nil(t, s.Shutdown(context.Background()))
	assert.Nil(t, <-done)
}
