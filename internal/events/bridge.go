package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	eventbridgetypes "github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/rs/zerolog/log"
)

// BridgePublisher publishes events to an AWS EventBridge bus.
type BridgePublisher struct {
	client  *eventbridge.Client
	busName string
}

var _ Publisher = (*BridgePublisher)(nil)

// NewBridgePublisher creates a publisher for the named bus. An empty
// busName targets the account's default bus.
func NewBridgePublisher(client *eventbridge.Client, busName string) *BridgePublisher {
	return &BridgePublisher{client: client, busName: busName}
}

func (p *BridgePublisher) PublishUploadCompleted(ctx context.Context, event UploadCompleted) error {
	detail, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal UploadCompleted: %w", err)
	}

	entry := eventbridgetypes.PutEventsRequestEntry{
		Source:     aws.String(Source),
		DetailType: aws.String(DetailTypeUploadCompleted),
		Detail:     aws.String(string(detail)),
	}
	if p.busName != "" {
		entry.EventBusName = &p.busName
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []eventbridgetypes.PutEventsRequestEntry{entry},
	})
	if err != nil {
		log.Error().Err(err).Str("sessionId", event.SessionID).Msg("EventBridge PutEvents failed")
		return fmt.Errorf("PutEvents: %w", err)
	}

	if result.FailedEntryCount > 0 {
		for i, e := range result.Entries {
			if e.ErrorCode != nil || e.ErrorMessage != nil {
				log.Error().
					Int("index", i).
					Str("errorCode", aws.ToString(e.ErrorCode)).
					Str("errorMessage", aws.ToString(e.ErrorMessage)).
					Str("sessionId", event.SessionID).
					Msg("EventBridge PutEvents entry failed")
				return fmt.Errorf("PutEvents entry %d failed: %s - %s", i, aws.ToString(e.ErrorCode), aws.ToString(e.ErrorMessage))
			}
		}
	}

	log.Debug().
		Str("sessionId", event.SessionID).
		Int("designs", len(event.DesignIDs)).
		Str("status", event.Status).
		Msg("DesignUploadCompleted emitted to EventBridge")
	return nil
}
