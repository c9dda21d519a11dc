// Rolodex serves the blob and person record routes implemented by package
// server, backed by the containers and tables of package storage.
//
// The configuration file (relaxed JSON, see github.com/rogpeppe/rjson) is
// optional. Environment variables override it, which is how the server is
// usually configured in a container:
//
//	PORT             listen port (default 4321)
//	APP_NAME         name shown on the landing page
//	DEBUG            enables debug logging unless "false" or "0"
//	METRICS_ADDRESS  address of the Prometheus listener (disabled if empty)
//	SOURCE_URL       people file loaded by the landing page
//	BLOB_TYPE        s3, bolt, disk or memory
//	BLOB_BUCKET, BLOB_REGION, BLOB_PROFILE, BLOB_ENDPOINT, BLOB_PATH
//	BLOB_CACHE_PATH  Bolt file caching blobs in front of the blob backend
//	DOCS_TYPE        dynamodb or memory
//	DOCS_TABLE, DOCS_REGION, DOCS_PROFILE, DOCS_ENDPOINT
//
// An example configuration file:
//
//	{
//		address: ":4321"
//		metrics_address: "localhost:9100"
//		blobs: {
//			type: "s3"
//			region: "us-west-2"
//			bucket: "rolodex-blobs"
//		}
//		documents: {
//			type: "dynamodb"
//			region: "us-west-2"
//			table: "rolodex"
//		}
//	}
package main // import "github.com/nicolagi/rolodex/cmd/rolodex"
