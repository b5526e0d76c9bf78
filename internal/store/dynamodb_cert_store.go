package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog/log"
)

// Secondary indexes of the certificate table.
const (
	holderIndex      = "GSI1" // chr partition key
	fingerprintIndex = "GSI2" // fingerprint partition key
)

// fingerprintKeyPrefix marks the rows that reserve a fingerprint for a single
// certificate. They carry no chr or fingerprint attribute so neither index sees them.
const fingerprintKeyPrefix = "fp#"

// DynamoDBAPI is the subset of the DynamoDB client used by the certificate store.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// DynamoDBCertificateStore is a DynamoDB implementation of CertificateStore
type DynamoDBCertificateStore struct {
	client    DynamoDBAPI
	tableName string
}

// NewDynamoDBCertificateStore creates a new DynamoDB certificate store
func NewDynamoDBCertificateStore(client DynamoDBAPI, tableName string) *DynamoDBCertificateStore {
	return &DynamoDBCertificateStore{
		client:    client,
		tableName: tableName,
	}
}

// Get retrieves certificate metadata by ID
func (s *DynamoDBCertificateStore) Get(ctx context.Context, id string) (*CertMetadata, error) {
	if strings.HasPrefix(id, fingerprintKeyPrefix) {
		return nil, ErrCertNotFound
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, wrapAWSError(err, "failed to get certificate")
	}

	if result.Item == nil {
		return nil, ErrCertNotFound
	}

	var cert CertMetadata
	if err := attributevalue.UnmarshalMap(result.Item, &cert); err != nil {
		return nil, fmt.Errorf("failed to unmarshal certificate: %w", err)
	}

	return &cert, nil
}

// GetByHolder retrieves all certificates for a holder reference using GSI1
func (s *DynamoDBCertificateStore) GetByHolder(ctx context.Context, chr string) ([]*CertMetadata, error) {
	keyEx := expression.Key("chr").Equal(expression.Value(chr))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(holderIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	certs := make([]*CertMetadata, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSError(err, "failed to query certificates by holder")
		}
		certs = append(certs, unmarshalCerts(page.Items)...)
	}

	return certs, nil
}

// GetByFingerprint retrieves a certificate by fingerprint using GSI2
func (s *DynamoDBCertificateStore) GetByFingerprint(ctx context.Context, fingerprint string) (*CertMetadata, error) {
	keyEx := expression.Key("fingerprint").Equal(expression.Value(fingerprint))
	expr, err := expression.NewBuilder().WithKeyCondition(keyEx).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(fingerprintIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, wrapAWSError(err, "failed to query certificate by fingerprint")
	}

	if len(result.Items) == 0 {
		return nil, ErrCertNotFound
	}

	var cert CertMetadata
	if err := attributevalue.UnmarshalMap(result.Items[0], &cert); err != nil {
		return nil, fmt.Errorf("failed to unmarshal certificate: %w", err)
	}

	return &cert, nil
}

// Register stores certificate metadata. The certificate row and a row reserving
// its fingerprint are written in one transaction, so neither the ID nor the
// encoded certificate can be registered twice.
func (s *DynamoDBCertificateStore) Register(ctx context.Context, cert *CertMetadata) error {
	item, err := attributevalue.MarshalMap(cert)
	if err != nil {
		return fmt.Errorf("failed to marshal certificate: %w", err)
	}

	reservation := map[string]types.AttributeValue{
		"id":             &types.AttributeValueMemberS{Value: fingerprintKeyPrefix + cert.Fingerprint},
		"certificate_id": &types.AttributeValueMemberS{Value: cert.ID},
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                reservation,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrCertAlreadyExists
		}
		return wrapAWSError(err, "failed to register certificate")
	}

	log.Debug().
		Str("id", cert.ID).
		Str("chr", cert.CHR).
		Str("fingerprint", cert.Fingerprint).
		Msg("certificate registered")

	return nil
}

func conditionFailed(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// Revoke marks a certificate as revoked
func (s *DynamoDBCertificateStore) Revoke(ctx context.Context, id string, reason string) error {
	now := time.Now().UTC()

	update := expression.Set(
		expression.Name("revoked"),
		expression.Value(true),
	).Set(
		expression.Name("revoked_at"),
		expression.Value(now),
	).Set(
		expression.Name("revocation_reason"),
		expression.Value(reason),
	)

	condition := expression.AttributeExists(expression.Name("id")).
		And(expression.AttributeExists(expression.Name("fingerprint")))

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.tableName),
		Key:                       map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return ErrCertNotFound
		}
		return wrapAWSError(err, "failed to revoke certificate")
	}

	log.Info().
		Str("id", id).
		Str("reason", reason).
		Msg("certificate revoked")

	return nil
}

// List returns registered certificates. Limit applies after revoked
// certificates are filtered out.
func (s *DynamoDBCertificateStore) List(ctx context.Context, opts ListCertificatesOptions) ([]*CertMetadata, error) {
	if opts.CHR != "" {
		certs, err := s.GetByHolder(ctx, opts.CHR)
		if err != nil {
			return nil, err
		}
		return filterCerts(certs, opts), nil
	}

	filter := expression.AttributeExists(expression.Name("fingerprint"))
	if !opts.IncludeRevoked {
		filter = filter.And(expression.Name("revoked").Equal(expression.Value(false)))
	}
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build filter expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:                 aws.String(s.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})

	certs := make([]*CertMetadata, 0)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapAWSError(err, "failed to list certificates")
		}
		certs = append(certs, filterCerts(unmarshalCerts(page.Items), opts)...)
		if opts.Limit > 0 && len(certs) >= opts.Limit {
			return certs[:opts.Limit], nil
		}
	}

	return certs, nil
}

func unmarshalCerts(items []map[string]types.AttributeValue) []*CertMetadata {
	certs := make([]*CertMetadata, 0, len(items))
	for _, item := range items {
		var cert CertMetadata
		if err := attributevalue.UnmarshalMap(item, &cert); err != nil {
			log.Error().Err(err).Msg("failed to unmarshal certificate, skipping")
			continue
		}
		certs = append(certs, &cert)
	}
	return certs
}

func filterCerts(certs []*CertMetadata, opts ListCertificatesOptions) []*CertMetadata {
	result := make([]*CertMetadata, 0, len(certs))
	for _, cert := range certs {
		if strings.HasPrefix(cert.ID, fingerprintKeyPrefix) {
			continue
		}
		if cert.Revoked && !opts.IncludeRevoked {
			continue
		}
		result = append(result, cert)
		if opts.Limit > 0 && len(result) >= opts.Limit {
			break
		}
	}
	return result
}
