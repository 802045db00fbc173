// Package catalog persists design records and enforces the signature
// uniqueness guarantee that backs duplicate detection.
//
// Records are scoped to an owner (or the owner's shop when one is
// set); a perceptual signature may appear at most once per scope.
// InsertDesign is the second line of defense behind the per-session
// similarity index: a conflict at insert time means another worker or
// session won the race, and callers treat it as a late duplicate
// verdict rather than a failure.
package catalog

import (
	"context"
	"errors"

	"github.com/NandoSerrano85/etsy-seller-automater-sub003/internal/phash"
)

// ErrDuplicateSignature is returned by InsertDesign when the record's
// signature already exists in its scope.
var ErrDuplicateSignature = errors.New("signature already exists in scope")

// DesignRecord is one catalog row for an accepted design image.
// The upload workflow creates records exactly once and never mutates
// them afterwards.
type DesignRecord struct {
	ID           string   `json:"id" dynamodbav:"-"`
	OwnerID      string   `json:"ownerId" dynamodbav:"ownerId"`
	ShopID       string   `json:"shopId,omitempty" dynamodbav:"shopId,omitempty"`
	Filename     string   `json:"filename" dynamodbav:"filename"`
	StoragePath  string   `json:"storagePath" dynamodbav:"storagePath"`
	Phash        string   `json:"phash" dynamodbav:"phash"`
	Dhash        string   `json:"dhash" dynamodbav:"dhash"`
	IsActive     bool     `json:"isActive" dynamodbav:"isActive"`
	IsDigital    bool     `json:"isDigital" dynamodbav:"isDigital"`
	TemplateName string   `json:"templateName,omitempty" dynamodbav:"templateName,omitempty"`
	CanvasID     string   `json:"canvasId,omitempty" dynamodbav:"canvasId,omitempty"`
	SizeIDs      []string `json:"sizeIds,omitempty" dynamodbav:"sizeIds,omitempty"`
	CreatedAt    int64    `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt" dynamodbav:"updatedAt"`
}

// Scope returns the uniqueness scope for the record's signature:
// the shop when set, otherwise the owner.
func (r *DesignRecord) Scope() string {
	if r.ShopID != "" {
		return r.ShopID
	}
	return r.OwnerID
}

// Signature decodes the record's stored hash components.
func (r *DesignRecord) Signature() (phash.Signature, error) {
	return phash.Parse(r.Phash, r.Dhash)
}

// SignatureEntry pairs a design ID with its decoded signature, as
// returned by ActiveSignatures for similarity index seeding.
type SignatureEntry struct {
	DesignID  string
	Signature phash.Signature
}

// Store is the catalog persistence interface. Each method is safe for
// concurrent use.
type Store interface {
	// InsertDesign writes a new design record, enforcing signature
	// uniqueness within the record's scope. Two concurrent inserts of
	// the same signature yield exactly one success and one
	// ErrDuplicateSignature. When the record has no ID one is
	// assigned before the write.
	InsertDesign(ctx context.Context, rec *DesignRecord) error

	// GetDesign retrieves one record by scope and ID.
	// Returns nil, nil when not found.
	GetDesign(ctx context.Context, scope, id string) (*DesignRecord, error)

	// ActiveSignatures loads the signatures of every active design in
	// the scope. Records whose stored signature cannot be decoded are
	// skipped rather than failing the load.
	ActiveSignatures(ctx context.Context, scope string) ([]SignatureEntry, error)
}
