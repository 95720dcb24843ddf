// Package dynamodb provides the DynamoDB-backed flow repository. Each flow
// is one item keyed by its id; the snapshot is stored as a document
// attribute. Writes go through a circuit breaker so a struggling table
// degrades into fast failures instead of piling up timed-out autosaves.
package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"studio-backend/application/ports"
	"studio-backend/domain/core/aggregates"
	"studio-backend/domain/valueobjects"
	pkgerrors "studio-backend/pkg/errors"
)

// Client is the subset of the DynamoDB API the repository uses
type Client interface {
	PutItem(ctx context.Context, params *awsdynamodb.PutItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *awsdynamodb.GetItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *awsdynamodb.DeleteItemInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *awsdynamodb.ScanInput, optFns ...func(*awsdynamodb.Options)) (*awsdynamodb.ScanOutput, error)
}

type flowItem struct {
	PK            string                  `dynamodbav:"pk"`
	SchemaVersion int                     `dynamodbav:"schemaVersion"`
	Name          string                  `dynamodbav:"name"`
	Description   string                  `dynamodbav:"description"`
	Stage         string                  `dynamodbav:"stage"`
	State         string                  `dynamodbav:"state"`
	NodeCount     int                     `dynamodbav:"nodeCount"`
	Snapshot      aggregates.FlowSnapshot `dynamodbav:"snapshot"`
}

// FlowRepository persists flow snapshots in a DynamoDB table
type FlowRepository struct {
	client  Client
	table   string
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewFlowRepository creates a repository over the given table
func NewFlowRepository(client Client, table string, logger *zap.Logger) *FlowRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dynamodb-flows",
		MaxRequests: 3,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &FlowRepository{
		client:  client,
		table:   table,
		breaker: breaker,
		logger:  logger,
	}
}

// Save writes the full snapshot as one item
func (r *FlowRepository) Save(ctx context.Context, snapshot aggregates.FlowSnapshot) error {
	item, err := attributevalue.MarshalMap(flowItem{
		PK:            snapshot.ID,
		SchemaVersion: snapshot.SchemaVersion,
		Name:          snapshot.Name,
		Description:   snapshot.Description,
		Stage:         snapshot.Stage,
		State:         snapshot.State,
		NodeCount:     len(snapshot.Graph.Nodes),
		Snapshot:      snapshot,
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to marshal flow item", err)
	}

	_, err = r.breaker.Execute(func() (interface{}, error) {
		return r.client.PutItem(ctx, &awsdynamodb.PutItemInput{
			TableName: aws.String(r.table),
			Item:      item,
		})
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to save flow", err)
	}
	return nil
}

// Load reads a flow snapshot by id
func (r *FlowRepository) Load(ctx context.Context, id valueobjects.FlowID) (aggregates.FlowSnapshot, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.GetItem(ctx, &awsdynamodb.GetItemInput{
			TableName: aws.String(r.table),
			Key: map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: id.String()},
			},
		})
	})
	if err != nil {
		return aggregates.FlowSnapshot{}, pkgerrors.NewInternalError("failed to load flow", err)
	}

	result := out.(*awsdynamodb.GetItemOutput)
	if result.Item == nil {
		return aggregates.FlowSnapshot{}, pkgerrors.NewNotFoundError("flow")
	}

	var item flowItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return aggregates.FlowSnapshot{}, pkgerrors.NewInternalError("failed to unmarshal flow item", err)
	}
	if item.Snapshot.SchemaVersion > aggregates.FlowSchemaVersion {
		return aggregates.FlowSnapshot{}, pkgerrors.NewInternalError("flow was written by a newer schema version", errors.New("unsupported schema version"))
	}
	return item.Snapshot, nil
}

// List scans the table into summaries
func (r *FlowRepository) List(ctx context.Context) ([]ports.FlowSummary, error) {
	out, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.Scan(ctx, &awsdynamodb.ScanInput{
			TableName:            aws.String(r.table),
			ProjectionExpression: aws.String("pk, #n, description, stage, #s, nodeCount"),
			ExpressionAttributeNames: map[string]string{
				"#n": "name",
				"#s": "state",
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.NewInternalError("failed to list flows", err)
	}

	result := out.(*awsdynamodb.ScanOutput)
	summaries := make([]ports.FlowSummary, 0, len(result.Items))
	for _, raw := range result.Items {
		var item flowItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			r.logger.Warn("skipping unreadable flow item", zap.Error(err))
			continue
		}
		summaries = append(summaries, ports.FlowSummary{
			ID:          item.PK,
			Name:        item.Name,
			Description: item.Description,
			Stage:       item.Stage,
			State:       item.State,
			NodeCount:   item.NodeCount,
		})
	}
	return summaries, nil
}

// Delete removes a flow item
func (r *FlowRepository) Delete(ctx context.Context, id valueobjects.FlowID) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return r.client.DeleteItem(ctx, &awsdynamodb.DeleteItemInput{
			TableName: aws.String(r.table),
			Key: map[string]types.AttributeValue{
				"pk": &types.AttributeValueMemberS{Value: id.String()},
			},
		})
	})
	if err != nil {
		return pkgerrors.NewInternalError("failed to delete flow", err)
	}
	return nil
}
