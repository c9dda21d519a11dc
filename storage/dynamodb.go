package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/nicolagi/rolodex/person"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// DynamoDBTable is a Table backed by a DynamoDB table whose partition key is
// last_name and whose sort key is first_name, which makes the pair unique.
type DynamoDBTable struct {
	opts  AWSOptions
	table string

	// Do throttling on our side based on configured RCUs/WCUs so the
	// client doesn't have to retry.
	getLimiter *rate.Limiter
	putLimiter *rate.Limiter

	mu  sync.Mutex
	ddb dynamodbiface.DynamoDBAPI
}

func NewDynamoDBTable(opts AWSOptions, table string) *DynamoDBTable {
	return &DynamoDBTable{
		opts:       opts,
		table:      table,
		getLimiter: rate.NewLimiter(rate.Inf, 1),
		putLimiter: rate.NewLimiter(rate.Inf, 1),
	}
}

// NewDynamoDBTableWithClient returns a table using the given client, which
// is mostly useful for tests.
func NewDynamoDBTableWithClient(ddb dynamodbiface.DynamoDBAPI, table string) *DynamoDBTable {
	t := NewDynamoDBTable(AWSOptions{}, table)
	t.ddb = ddb
	return t
}

func (s *DynamoDBTable) ensureClient() (dynamodbiface.DynamoDBAPI, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ddb != nil {
		return s.ddb, nil
	}
	sess, err := newSession(s.opts, false)
	if err != nil {
		return nil, err
	}
	s.ddb = dynamodb.New(sess)
	return s.ddb, nil
}

func (s *DynamoDBTable) Ensure(ctx context.Context) error {
	ddb, err := s.ensureClient()
	if err != nil {
		return err
	}
	_, err = ddb.CreateTableWithContext(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(s.table),
		BillingMode: aws.String(dynamodb.BillingModePayPerRequest),
		AttributeDefinitions: []*dynamodb.AttributeDefinition{
			{AttributeName: aws.String(person.KeyLastName), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
			{AttributeName: aws.String(person.KeyFirstName), AttributeType: aws.String(dynamodb.ScalarAttributeTypeS)},
		},
		KeySchema: []*dynamodb.KeySchemaElement{
			{AttributeName: aws.String(person.KeyLastName), KeyType: aws.String(dynamodb.KeyTypeHash)},
			{AttributeName: aws.String(person.KeyFirstName), KeyType: aws.String(dynamodb.KeyTypeRange)},
		},
	})
	switch {
	case err == nil:
		log.WithField("table", s.table).Info("Created table")
	case hasCode(err, dynamodb.ErrCodeResourceInUseException):
		// Already there.
	default:
		return fmt.Errorf("could not ensure table %q exists: %w", s.table, err)
	}
	describe := &dynamodb.DescribeTableInput{TableName: aws.String(s.table)}
	if err := ddb.WaitUntilTableExistsWithContext(ctx, describe); err != nil {
		return fmt.Errorf("waiting for table %q: %w", s.table, err)
	}
	return s.configureLimiters(ctx, ddb)
}

func (s *DynamoDBTable) configureLimiters(ctx context.Context, ddb dynamodbiface.DynamoDBAPI) error {
	result, err := ddb.DescribeTableWithContext(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err != nil {
		return err
	}
	pt := result.Table.ProvisionedThroughput
	if pt == nil {
		return nil
	}
	// Assume our items are <= 1 kB, so that RCUs/WCUs translate to requests
	// per second. On-demand tables report zero capacity: no throttling.
	if rcus := aws.Int64Value(pt.ReadCapacityUnits); rcus > 0 {
		s.getLimiter.SetLimit(rate.Every(time.Duration(1_000_000/rcus) * time.Microsecond))
	}
	if wcus := aws.Int64Value(pt.WriteCapacityUnits); wcus > 0 {
		s.putLimiter.SetLimit(rate.Every(time.Duration(1_000_000/wcus) * time.Microsecond))
	}
	return nil
}

func (s *DynamoDBTable) Upsert(ctx context.Context, r person.Record, newID string) (string, error) {
	if err := validate(r); err != nil {
		return "", err
	}
	ddb, err := s.ensureClient()
	if err != nil {
		return "", err
	}
	id := r.ID()
	if id == "" {
		if err := s.getLimiter.Wait(ctx); err != nil {
			return "", err
		}
		output, err := ddb.GetItemWithContext(ctx, &dynamodb.GetItemInput{
			TableName:                aws.String(s.table),
			Key:                      ddbKey(r.LastName(), r.FirstName()),
			ProjectionExpression:     aws.String("#id"),
			ExpressionAttributeNames: map[string]*string{"#id": aws.String(person.KeyID)},
		})
		if err != nil {
			return "", err
		}
		if v, ok := output.Item[person.KeyID]; ok {
			id = aws.StringValue(v.S)
		}
	}
	if id == "" {
		id = newID
	}
	stored := r.Clone()
	stored[person.KeyID] = id
	item, err := dynamodbattribute.MarshalMap(map[string]interface{}(stored))
	if err != nil {
		return "", err
	}
	if err := s.putLimiter.Wait(ctx); err != nil {
		return "", err
	}
	_, err = ddb.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// Query picks the cheapest request for f. Filters on the last name can use
// the key schema; filtering on the first name alone needs a scan.
func (s *DynamoDBTable) Query(ctx context.Context, f Filter) ([]person.Record, error) {
	ddb, err := s.ensureClient()
	if err != nil {
		return nil, err
	}
	var records []person.Record
	var decodeErr error
	collect := func(items []map[string]*dynamodb.AttributeValue) bool {
		var page []person.Record
		if decodeErr = dynamodbattribute.UnmarshalListOfMaps(items, &page); decodeErr != nil {
			return false
		}
		records = append(records, page...)
		if err := s.getLimiter.Wait(ctx); err != nil {
			decodeErr = err
			return false
		}
		return true
	}
	if err := s.getLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	if f.LastName != "" {
		err = ddb.QueryPagesWithContext(ctx, s.queryInput(f), func(page *dynamodb.QueryOutput, _ bool) bool {
			return collect(page.Items)
		})
	} else {
		err = ddb.ScanPagesWithContext(ctx, s.scanInput(f), func(page *dynamodb.ScanOutput, _ bool) bool {
			return collect(page.Items)
		})
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (s *DynamoDBTable) queryInput(f Filter) *dynamodb.QueryInput {
	input := &dynamodb.QueryInput{
		TableName:                aws.String(s.table),
		KeyConditionExpression:   aws.String("#ln = :ln"),
		ProjectionExpression:     aws.String("#id"),
		ExpressionAttributeNames: map[string]*string{
			"#id": aws.String(person.KeyID),
			"#ln": aws.String(person.KeyLastName),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":ln": {S: aws.String(f.LastName)},
		},
	}
	if f.FirstName != "" {
		input.KeyConditionExpression = aws.String("#ln = :ln AND #fn = :fn")
		input.ExpressionAttributeNames["#fn"] = aws.String(person.KeyFirstName)
		input.ExpressionAttributeValues[":fn"] = &dynamodb.AttributeValue{S: aws.String(f.FirstName)}
	}
	return input
}

func (s *DynamoDBTable) scanInput(f Filter) *dynamodb.ScanInput {
	input := &dynamodb.ScanInput{
		TableName: aws.String(s.table),
	}
	if f.FirstName != "" {
		input.FilterExpression = aws.String("#fn = :fn")
		input.ProjectionExpression = aws.String("#id")
		input.ExpressionAttributeNames = map[string]*string{
			"#id": aws.String(person.KeyID),
			"#fn": aws.String(person.KeyFirstName),
		}
		input.ExpressionAttributeValues = map[string]*dynamodb.AttributeValue{
			":fn": {S: aws.String(f.FirstName)},
		}
	}
	return input
}

func (s *DynamoDBTable) Delete(ctx context.Context, lastName, firstName string) error {
	ddb, err := s.ensureClient()
	if err != nil {
		return err
	}
	if err := s.putLimiter.Wait(ctx); err != nil {
		return err
	}
	_, err = ddb.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       ddbKey(lastName, firstName),
	})
	return err
}

func ddbKey(lastName, firstName string) map[string]*dynamodb.AttributeValue {
	return map[string]*dynamodb.AttributeValue{
		person.KeyLastName:  {S: aws.String(lastName)},
		person.KeyFirstName: {S: aws.String(firstName)},
	}
}
