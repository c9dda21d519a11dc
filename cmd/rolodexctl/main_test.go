package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/nicolagi/rolodex/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands(t *testing.T) {
	gin.SetMode(gin.TestMode)
	api := httptest.NewServer(server.New().Handler())
	defer api.Close()
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Smith John city=Seattle\nDoe Jane\n"))
	}))
	defer remote.Close()

	run := func(args ...string) string {
		var out bytes.Buffer
		cmd := newRootCommand(&out)
		cmd.SetArgs(append([]string{"--address", api.URL, "--source", remote.URL + "/input.txt"}, args...))
		require.Nil(t, cmd.ExecuteContext(context.Background()))
		return out.String()
	}

	out := run("load")
	assert.Contains(t, out, "last_name: Smith\nfirst_name: John\ncity: Seattle\n")
	assert.Contains(t, out, "last_name: Doe\nfirst_name: Jane\n")

	out = run("query", "--last", "Doe")
	assert.Contains(t, out, "last_name: Doe")
	assert.NotContains(t, out, "Smith")

	// No names prints everything.
	out = run("query")
	assert.Contains(t, out, "Smith")
	assert.Contains(t, out, "Doe")

	assert.Equal(t, "", run("clear"))
	assert.Equal(t, "", run("query"))
}
