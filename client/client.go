// Package client is a typed HTTP client for the rolodex server routes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/nicolagi/rolodex/person"
	"github.com/nicolagi/rolodex/storage"
)

// StatusError is returned for any response with a non-2xx status code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Code, http.StatusText(e.Code), e.Body)
}

type options struct {
	address string
	http    *http.Client
}

type Option func(*options)

// WithAddress sets the server's base URL, e.g., "http://localhost:4321".
func WithAddress(value string) Option {
	return func(o *options) {
		o.address = value
	}
}

func WithHTTPClient(value *http.Client) Option {
	return func(o *options) {
		o.http = value
	}
}

type Client struct {
	opts options
}

func New(opts ...Option) *Client {
	var c Client
	c.opts.address = "http://localhost:4321"
	c.opts.http = &http.Client{Timeout: time.Minute}
	for _, o := range opts {
		o(&c.opts)
	}
	return &c
}

// UploadBlob sends data as the multipart file field the upload route expects.
func (c *Client) UploadBlob(ctx context.Context, name string, data []byte) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/blob/upload", w.FormDataContentType(), &body)
	return err
}

func (c *Client) BlobText(ctx context.Context, name string) (string, error) {
	b, err := c.do(ctx, http.MethodGet, "/blob/text/"+url.PathEscape(name), "", nil)
	return string(b), err
}

func (c *Client) DownloadBlob(ctx context.Context, name string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, "/blob/"+url.PathEscape(name), "", nil)
}

func (c *Client) ListBlobs(ctx context.Context) (blobs []storage.Blob, err error) {
	err = c.getJSON(ctx, "/blob/all", &blobs)
	return
}

func (c *Client) DeleteBlob(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/blob/"+url.PathEscape(name), "", nil)
	return err
}

func (c *Client) DeleteAllBlobs(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/blob/all", "", nil)
	return err
}

// UpsertRecords posts records as a JSON array. The server does not report
// which records failed.
func (c *Client) UpsertRecords(ctx context.Context, records []person.Record) error {
	b, err := json.Marshal(records)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/cosmos/all", "application/json", bytes.NewReader(b))
	return err
}

// QueryIDs returns the ids of the records matching the non-empty names. At
// least one name must be given, otherwise use AllRecords.
func (c *Client) QueryIDs(ctx context.Context, lastName, firstName string) (ids []string, err error) {
	if lastName == "" && firstName == "" {
		return nil, fmt.Errorf("query needs a last or first name")
	}
	q := url.Values{}
	if lastName != "" {
		q.Set("last_name", lastName)
	}
	if firstName != "" {
		q.Set("first_name", firstName)
	}
	err = c.getJSON(ctx, "/cosmos/all?"+q.Encode(), &ids)
	return
}

func (c *Client) AllRecords(ctx context.Context) (records []person.Record, err error) {
	err = c.getJSON(ctx, "/cosmos/all", &records)
	return
}

func (c *Client) DeleteAllRecords(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodDelete, "/cosmos/all", "", nil)
	return err
}

// FetchText fetches a remote text resource, typically the people file the
// page loads. The returned name is the last path segment of the final URL,
// after redirects.
func (c *Client) FetchText(ctx context.Context, rawurl string) (name string, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return "", "", err
	}
	body, res, err := c.roundTrip(req)
	if err != nil {
		return "", "", fmt.Errorf("%q: %w", rawurl, err)
	}
	name = path.Base(res.Request.URL.Path)
	if name == "/" || name == "." {
		return "", "", fmt.Errorf("%q: no file name in URL", rawurl)
	}
	return name, string(body), nil
}

func (c *Client) getJSON(ctx context.Context, target string, v interface{}) error {
	b, err := c.do(ctx, http.MethodGet, target, "", nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (c *Client) do(ctx context.Context, method, target, contentType string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.opts.address+target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	b, _, err := c.roundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	return b, nil
}

func (c *Client) roundTrip(req *http.Request) ([]byte, *http.Response, error) {
	response, err := c.opts.http.Do(req)
	if response != nil && response.Body != nil {
		defer func() {
			_ = response.Body.Close()
		}()
	}
	if err != nil {
		return nil, nil, err
	}
	body, err := ioutil.ReadAll(response.Body)
	if err != nil {
		return nil, nil, err
	}
	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, nil, &StatusError{Code: response.StatusCode, Body: string(body)}
	}
	return body, response, nil
}
