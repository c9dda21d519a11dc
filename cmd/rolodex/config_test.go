package main

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		c, err := loadConfig(filepath.Join(dir, "nope.config"))
		require.Nil(t, err)
		c.applyDefaultsForMissingProperties()
		assert.Equal(t, ":4321", c.Address)
		assert.Equal(t, "rolodex", c.AppName)
		assert.Equal(t, "memory", c.Blobs.Type)
		assert.Equal(t, "memory", c.Documents.Type)
		assert.Equal(t, "", c.Blobs.Path)
	})

	t.Run("relaxed json", func(t *testing.T) {
		path := filepath.Join(dir, "rolodex.config")
		require.Nil(t, ioutil.WriteFile(path, []byte(`{
			debug: true
			blobs: {
				type: "Bolt"
			}
			documents: {
				type: "dynamodb"
				region: "us-west-2"
				table: "people"
			}
		}`), 0600))
		c, err := loadConfig(path)
		require.Nil(t, err)
		c.applyDefaultsForMissingProperties()
		assert.True(t, c.Debug)
		assert.Equal(t, "bolt", c.Blobs.Type)
		assert.Equal(t, "$HOME/lib/rolodex/blobs.db", c.Blobs.Path)
		assert.Equal(t, "dynamodb", c.Documents.Type)
		assert.Equal(t, "people", c.Documents.Table)
		assert.Equal(t, "us-west-2", c.Documents.Region)
	})

	t.Run("invalid file", func(t *testing.T) {
		path := filepath.Join(dir, "broken.config")
		require.Nil(t, ioutil.WriteFile(path, []byte(`{debug: `), 0600))
		_, err := loadConfig(path)
		assert.NotNil(t, err)
	})
}

func TestApplyEnvironment(t *testing.T) {
	env := map[string]string{
		"PORT":          "8080",
		"DEBUG":         "false",
		"BLOB_TYPE":     "s3",
		"BLOB_BUCKET":   "blobs",
		"BLOB_ENDPOINT": "http://localhost:9000",
		"DOCS_TABLE":    "people",
	}
	c := &config{Debug: true, AppName: "from file"}
	c.applyEnvironment(func(key string) string { return env[key] })
	c.applyDefaultsForMissingProperties()
	assert.Equal(t, ":8080", c.Address)
	assert.False(t, c.Debug)
	assert.Equal(t, "from file", c.AppName)
	assert.Equal(t, "s3", c.Blobs.Type)
	assert.Equal(t, "blobs", c.Blobs.Bucket)
	assert.Equal(t, "http://localhost:9000", c.Blobs.Endpoint)
	assert.Equal(t, "people", c.Documents.Table)
	assert.Equal(t, "memory", c.Documents.Type)
}
