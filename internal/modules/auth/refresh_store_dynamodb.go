package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoDBAPI is the subset of *dynamodb.Client the refresh store calls
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	UpdateTimeToLive(ctx context.Context, params *dynamodb.UpdateTimeToLiveInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateTimeToLiveOutput, error)
}

// refreshItem is one row of the refresh token table.
// ExpiresAt is epoch seconds so it can double as the table's TTL attribute
type refreshItem struct {
	TokenHash string `dynamodbav:"TokenHash"`
	UserID    string `dynamodbav:"UserID"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"`
}

var _ RefreshStore = (*DynamoDBRefreshStore)(nil)

// DynamoDBRefreshStore keeps refresh tokens in a DynamoDB table keyed by token hash.
// Rotation is one transaction: a Delete conditioned on the old item still being
// live and owned by the same user, plus the Put of its replacement. Two concurrent
// redeemers cannot both succeed, and a failed Put leaves the old token in place
type DynamoDBRefreshStore struct {
	client    DynamoDBAPI
	tableName string
	ttl       time.Duration
	clock     clock.Clock
	entropy   io.Reader
}

func NewDynamoDBRefreshStore(client DynamoDBAPI, tableName string, ttl time.Duration, clk clock.Clock) *DynamoDBRefreshStore {
	if ttl <= 0 {
		ttl = DefaultRefreshTokenTTL
	}
	return &DynamoDBRefreshStore{
		client:    client,
		tableName: tableName,
		ttl:       ttl,
		clock:     clk,
		entropy:   rand.Reader,
	}
}

// EnsureTable creates the table with TTL on ExpiresAt when it does not exist yet
func (s *DynamoDBRefreshStore) EnsureTable(ctx context.Context) error {
	log := ctxlogger.GetLogger(ctx)

	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.tableName)})
	if err == nil {
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe refresh token table: %w", err)
	}

	log.Info("creating refresh token table", slog.String("table", s.tableName))
	_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.tableName),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("TokenHash"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("TokenHash"), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		return fmt.Errorf("failed to create refresh token table: %w", err)
	}

	_, err = s.client.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
		TableName: aws.String(s.tableName),
		TimeToLiveSpecification: &types.TimeToLiveSpecification{
			AttributeName: aws.String("ExpiresAt"),
			Enabled:       aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable ttl on refresh token table: %w", err)
	}

	return nil
}

func (s *DynamoDBRefreshStore) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token, item, err := s.newItem(userID)
	if err != nil {
		return "", err
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(TokenHash)"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to save refresh token to dynamodb: %w", err)
	}

	return token, nil
}

func (s *DynamoDBRefreshStore) Rotate(ctx context.Context, token string) (uuid.UUID, string, error) {
	if token == "" {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}

	key := tokenKey(token)
	now := s.clock.Now().Unix()

	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to load refresh token: %w", err)
	}
	if len(out.Item) == 0 {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}

	var old refreshItem
	if err := attributevalue.UnmarshalMap(out.Item, &old); err != nil {
		return uuid.Nil, "", fmt.Errorf("failed to unmarshal refresh token item: %w", err)
	}
	if old.ExpiresAt <= now {
		return uuid.Nil, "", ErrInvalidRefreshToken
	}

	userID, err := uuid.Parse(old.UserID)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("corrupt refresh token entry: %w", err)
	}

	next, item, err := s.newItem(userID)
	if err != nil {
		return uuid.Nil, "", err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Delete: &types.Delete{
				TableName:           aws.String(s.tableName),
				Key:                 key,
				ConditionExpression: aws.String("attribute_exists(TokenHash) AND ExpiresAt > :now AND UserID = :uid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
					":uid": &types.AttributeValueMemberS{Value: old.UserID},
				},
			}},
			{Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(TokenHash)"),
			}},
		},
	})
	if err != nil {
		if lostRotation(err) {
			return uuid.Nil, "", ErrInvalidRefreshToken
		}
		return uuid.Nil, "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return userID, next, nil
}

func (s *DynamoDBRefreshStore) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 tokenKey(token),
		ConditionExpression: aws.String("UserID = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID.String()},
		},
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil
		}
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

func (s *DynamoDBRefreshStore) newItem(userID uuid.UUID) (string, map[string]types.AttributeValue, error) {
	token, err := generateOpaqueToken(s.entropy)
	if err != nil {
		return "", nil, err
	}

	item, err := attributevalue.MarshalMap(refreshItem{
		TokenHash: hashToken(token),
		UserID:    userID.String(),
		ExpiresAt: s.clock.Now().Add(s.ttl).Unix(),
	})
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal refresh token for dynamodb: %w", err)
	}

	return token, item, nil
}

func tokenKey(token string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"TokenHash": &types.AttributeValueMemberS{Value: hashToken(token)},
	}
}

// lostRotation reports whether the transaction was cancelled because the old
// token was already gone, expired or contended by a concurrent redeemer
func lostRotation(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) || len(canceled.CancellationReasons) == 0 {
		return false
	}
	switch aws.ToString(canceled.CancellationReasons[0].Code) {
	case "ConditionalCheckFailed", "TransactionConflict":
		return true
	}
	return false
}
