package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/mediavault-backend/internal/types"
)

const (
	EventAssetCreated = "asset.created"
	EventAssetUpdated = "asset.updated"
	EventAssetDeleted = "asset.deleted"

	DefaultRedisChannel = "mediavault.assets"
	DefaultKafkaTopic   = "mediavault.assets"
)

type Event struct {
	ID         uuid.UUID    `json:"id"`
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurred_at"`
	AssetID    uuid.UUID    `json:"asset_id"`
	BusinessID uuid.UUID    `json:"business_id"`
	Asset      *types.Asset `json:"asset,omitempty"`
}

// NewAssetEvent snapshots asset into an event of the given type.
func NewAssetEvent(eventType string, asset *types.Asset) Event {
	evt := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
	}
	if asset != nil {
		snapshot := *asset
		evt.AssetID = asset.ID
		evt.BusinessID = asset.BusinessID
		evt.Asset = &snapshot
	}
	return evt
}

func (e Event) Encode() ([]byte, error) { return json.Marshal(e) }

type Publisher interface {
	Publish(ctx context.Context, evt Event) error
	Close() error
}

type nopPublisher struct{}

func NewNop() Publisher { return nopPublisher{} }

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }
