// Package storage provides durable blob storage for processed design
// files and digital bundles.
package storage

import "context"

// BlobStore writes design bytes at caller-chosen paths. Paths use
// forward slashes regardless of backend. Put overwrites silently;
// the workflow never writes the same path twice within a session.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}
