package main

import (
	"errors"
	"os"
	"strings"

	"github.com/rogpeppe/rjson"
)

type config struct {
	Address        string `json:"address"`
	AppName        string `json:"app_name"`
	Debug          bool   `json:"debug"`
	MetricsAddress string `json:"metrics_address"`
	SourceURL      string `json:"source_url"`

	Blobs struct {
		Type string `json:"type"`

		// Properties for "s3" type.
		Profile  string `json:"profile"`
		Region   string `json:"region"`
		Endpoint string `json:"endpoint"`
		Bucket   string `json:"bucket"`

		// Properties for "bolt" and "disk" types.
		Path string `json:"path"`

		// Bolt file caching blobs locally, for any type.
		CachePath string `json:"cache_path"`
	} `json:"blobs"`

	Documents struct {
		Type string `json:"type"`

		// Properties for "dynamodb" type.
		Profile  string `json:"profile"`
		Region   string `json:"region"`
		Endpoint string `json:"endpoint"`
		Table    string `json:"table"`
	} `json:"documents"`
}

// loadConfig decodes the file at pathname. A missing file yields an empty
// configuration.
func loadConfig(pathname string) (*config, error) {
	f, err := os.Open(pathname)
	if errors.Is(err, os.ErrNotExist) {
		return &config{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()
	var c *config
	if err := rjson.NewDecoder(f).Decode(&c); err != nil {
		return nil, err
	}
	if c == nil {
		c = &config{}
	}
	return c, nil
}

func (c *config) applyEnvironment(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	if port := getenv("PORT"); port != "" {
		c.Address = ":" + port
	}
	set(&c.AppName, "APP_NAME")
	if v := getenv("DEBUG"); v != "" {
		c.Debug = v != "false" && v != "0"
	}
	set(&c.MetricsAddress, "METRICS_ADDRESS")
	set(&c.SourceURL, "SOURCE_URL")
	set(&c.Blobs.Type, "BLOB_TYPE")
	set(&c.Blobs.Bucket, "BLOB_BUCKET")
	set(&c.Blobs.Region, "BLOB_REGION")
	set(&c.Blobs.Profile, "BLOB_PROFILE")
	set(&c.Blobs.Endpoint, "BLOB_ENDPOINT")
	set(&c.Blobs.Path, "BLOB_PATH")
	set(&c.Blobs.CachePath, "BLOB_CACHE_PATH")
	set(&c.Documents.Type, "DOCS_TYPE")
	set(&c.Documents.Table, "DOCS_TABLE")
	set(&c.Documents.Region, "DOCS_REGION")
	set(&c.Documents.Profile, "DOCS_PROFILE")
	set(&c.Documents.Endpoint, "DOCS_ENDPOINT")
}

func (c *config) applyDefaultsForMissingProperties() {
	if c.Address == "" {
		c.Address = ":4321"
	}
	if c.AppName == "" {
		c.AppName = "rolodex"
	}
	if c.SourceURL == "" {
		c.SourceURL = "https://s3-us-west-2.amazonaws.com/css490/input.txt"
	}
	c.Blobs.Type = strings.ToLower(c.Blobs.Type)
	if c.Blobs.Type == "" {
		c.Blobs.Type = "memory"
	}
	if c.Blobs.Bucket == "" {
		c.Blobs.Bucket = "rolodex"
	}
	if c.Blobs.Path == "" {
		switch c.Blobs.Type {
		case "bolt":
			c.Blobs.Path = "$HOME/lib/rolodex/blobs.db"
		case "disk":
			c.Blobs.Path = "$HOME/lib/rolodex/blobs"
		}
	}
	c.Documents.Type = strings.ToLower(c.Documents.Type)
	if c.Documents.Type == "" {
		c.Documents.Type = "memory"
	}
	if c.Documents.Table == "" {
		c.Documents.Table = "rolodex"
	}
}
