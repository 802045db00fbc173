// Package events publishes workflow notifications to the platform
// event bus. The mockup generation service subscribes to
// DesignUploadCompleted and renders product mockups for the design IDs
// the event carries.
package events

import "context"

// Source identifies this service on the event bus.
const Source = "etsy-seller-automater"

// DetailTypeUploadCompleted is the detail-type of the terminal
// session event.
const DetailTypeUploadCompleted = "DesignUploadCompleted"

// UploadCompleted is emitted once per upload session when it reaches a
// terminal status. DesignIDs lists the catalog records the session
// created, in manifest order; mockup generation consumes that list.
type UploadCompleted struct {
	SessionID  string   `json:"sessionId"`
	OwnerID    string   `json:"ownerId"`
	ShopID     string   `json:"shopId,omitempty"`
	Status     string   `json:"status"`
	DesignIDs  []string `json:"designIds"`
	Accepted   int      `json:"accepted"`
	Duplicates int      `json:"duplicates"`
	Failed     int      `json:"failed"`
	BundlePath string   `json:"bundlePath,omitempty"`
}

// Publisher delivers workflow events. Publish failures are reported to
// the caller but the workflow treats them as degradations, never as
// session failures.
type Publisher interface {
	PublishUploadCompleted(ctx context.Context, event UploadCompleted) error
}

// NopPublisher discards all events. Used in local runs and tests.
type NopPublisher struct{}

var _ Publisher = NopPublisher{}

func (NopPublisher) PublishUploadCompleted(ctx context.Context, event UploadCompleted) error {
	return nil
}
