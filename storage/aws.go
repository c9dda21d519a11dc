package storage

import (
	"net/http"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
)

// AWSOptions selects the account and endpoint an AWS-backed store talks to.
// An empty Profile means credentials come from the environment (or the
// instance role), an empty Endpoint means the public AWS endpoint.
type AWSOptions struct {
	Profile  string
	Region   string
	Endpoint string
}

func newSession(o AWSOptions, pathStyle bool) (*session.Session, error) {
	c := aws.NewConfig()
	if o.Region != "" {
		c = c.WithRegion(o.Region)
	}
	if o.Profile != "" {
		c = c.WithCredentials(credentials.NewSharedCredentials("", o.Profile))
	}
	if o.Endpoint != "" {
		// S3-compatible stores (minio, localstack) usually lack virtual hosts.
		c = c.WithEndpoint(o.Endpoint).WithS3ForcePathStyle(pathStyle)
	}
	return session.NewSession(c)
}

func isNotFound(err error) bool {
	if rfErr, ok := err.(awserr.RequestFailure); ok {
		return rfErr.StatusCode() == http.StatusNotFound
	}
	return false
}

func hasCode(err error, codes ...string) bool {
	e, ok := err.(awserr.Error)
	if !ok {
		return false
	}
	for _, c := range codes {
		if e.Code() == c {
			return true
		}
	}
	return false
}
