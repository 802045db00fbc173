package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DynamoDB key constants for the single-table design. Design rows and
// their signature guard rows live in the same table under different
// partition key prefixes.
const (
	designPKPrefix = "DESIGN#"
	designSKPrefix = "D#"
	sigPKPrefix    = "SIG#"
)

// DynamoStore implements Store using AWS DynamoDB.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// Compile-time interface check.
var _ Store = (*DynamoStore)(nil)

// NewDynamoStore creates a DynamoStore for the given table.
// The client should be initialized from the shared AWS config.
func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
	}
}

func designPK(scope string) string {
	return designPKPrefix + scope
}

func sigPK(scope string) string {
	return sigPKPrefix + scope
}

// InsertDesign writes the design row and its signature guard row in
// one transaction. The guard row carries a not-exists condition, so
// of two racing inserts with the same signature exactly one commits.
func (s *DynamoStore) InsertDesign(ctx context.Context, rec *DesignRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := time.Now().Unix()
	if rec.CreatedAt == 0 {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal design %s: %w", rec.ID, err)
	}
	item["PK"] = &types.AttributeValueMemberS{Value: designPK(rec.Scope())}
	item["SK"] = &types.AttributeValueMemberS{Value: designSKPrefix + rec.ID}

	guard := map[string]types.AttributeValue{
		"PK":       &types.AttributeValueMemberS{Value: sigPK(rec.Scope())},
		"SK":       &types.AttributeValueMemberS{Value: rec.Phash + rec.Dhash},
		"designId": &types.AttributeValueMemberS{Value: rec.ID},
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           &s.tableName,
					Item:                guard,
					ConditionExpression: aws.String("attribute_not_exists(PK)"),
				},
			},
			{
				Put: &types.Put{
					TableName: &s.tableName,
					Item:      item,
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancel(err) {
			return fmt.Errorf("insert design %s: %w", rec.ID, ErrDuplicateSignature)
		}
		return fmt.Errorf("TransactWriteItems design %s: %w", rec.ID, err)
	}

	log.Debug().
		Str("designId", rec.ID).
		Str("scope", rec.Scope()).
		Str("filename", rec.Filename).
		Msg("Design record persisted to DynamoDB")
	return nil
}

// isConditionalCancel reports whether a TransactWriteItems error was
// caused by the signature guard's not-exists condition.
func isConditionalCancel(err error) bool {
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

func (s *DynamoStore) GetDesign(ctx context.Context, scope, id string) (*DesignRecord, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &s.tableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: designPK(scope)},
			"SK": &types.AttributeValueMemberS{Value: designSKPrefix + id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem design %s/%s: %w", scope, id, err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var rec DesignRecord
	if err := attributevalue.UnmarshalMap(result.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal design %s/%s: %w", scope, id, err)
	}
	rec.ID = id
	return &rec, nil
}

func (s *DynamoStore) ActiveSignatures(ctx context.Context, scope string) ([]SignatureEntry, error) {
	input := &dynamodb.QueryInput{
		TableName:              &s.tableName,
		KeyConditionExpression: aws.String("PK = :pk"),
		FilterExpression:       aws.String("isActive = :active"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: designPK(scope)},
			":active": &types.AttributeValueMemberBOOL{Value: true},
		},
	}

	var entries []SignatureEntry

	// Handle pagination; DynamoDB returns up to 1MB per Query call.
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("Query signatures for %s: %w", scope, err)
		}

		for _, item := range result.Items {
			var rec DesignRecord
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				log.Warn().Err(err).Str("scope", scope).Msg("Failed to unmarshal design record, skipping")
				continue
			}
			if skAttr, ok := item["SK"].(*types.AttributeValueMemberS); ok {
				rec.ID = strings.TrimPrefix(skAttr.Value, designSKPrefix)
			}

			sig, err := rec.Signature()
			if err != nil {
				log.Warn().Err(err).Str("designId", rec.ID).Msg("Design record has undecodable signature, skipping")
				continue
			}
			entries = append(entries, SignatureEntry{DesignID: rec.ID, Signature: sig})
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	log.Debug().Str("scope", scope).Int("signatures", len(entries)).Msg("Active signatures loaded from DynamoDB")
	return entries, nil
}
