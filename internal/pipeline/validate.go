package pipeline

import (
	"fmt"
	"regexp"
	"strings"
)

// uuidRegex matches UUID v4 format: 8-4-4-4-12 lowercase hex with dashes.
var uuidRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// safeFilenameRegex allows alphanumeric, dots, hyphens, underscores, spaces, and parentheses.
var safeFilenameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._ ()-]{0,254}$`)

// templateNameRegex keeps template names usable as storage path segments.
var templateNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _-]{0,63}$`)

// allowedContentTypes is the content-type allowlist for design uploads.
// An empty content type is accepted; the decoder is the authority on
// whether the bytes are usable.
var allowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// validateRequest rejects malformed sessions before any work starts.
func validateRequest(req *Request) error {
	if req.OwnerID == "" {
		return &ValidationError{Field: "ownerId", Reason: "required"}
	}
	if req.SessionID != "" && !uuidRegex.MatchString(req.SessionID) {
		return &ValidationError{Field: "sessionId", Reason: "must be a UUID"}
	}
	if req.Metadata.TemplateName == "" {
		return &ValidationError{Field: "templateName", Reason: "required"}
	}
	if !templateNameRegex.MatchString(req.Metadata.TemplateName) {
		return &ValidationError{Field: "templateName", Reason: "only alphanumeric, spaces, hyphens, and underscores allowed"}
	}
	if len(req.Files) == 0 {
		return &ValidationError{Field: "files", Reason: "at least one file is required"}
	}

	// Files are keyed in storage by their extension-stripped name, so
	// the manifest must be collision-free on that name, not just on the
	// filename itself.
	seen := make(map[string]string, len(req.Files))
	for i, f := range req.Files {
		field := fmt.Sprintf("files[%d]", i)
		if err := validateFilename(f.Filename); err != nil {
			return &ValidationError{Field: field, Reason: err.Error()}
		}
		if f.ContentType != "" && !allowedContentTypes[f.ContentType] {
			return &ValidationError{Field: field, Reason: fmt.Sprintf("unsupported content type %q", f.ContentType)}
		}
		if len(f.Data) == 0 {
			return &ValidationError{Field: field, Reason: "file is empty"}
		}
		base := storageBase(f.Filename)
		if first, dup := seen[base]; dup {
			if first == f.Filename {
				return &ValidationError{Field: field, Reason: fmt.Sprintf("duplicate filename %q", f.Filename)}
			}
			return &ValidationError{Field: field, Reason: fmt.Sprintf("stores to the same name as %q", first)}
		}
		seen[base] = f.Filename
	}
	return nil
}

func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("filename is required")
	}
	if strings.Contains(name, "..") || strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return fmt.Errorf("filename contains invalid characters")
	}
	if !safeFilenameRegex.MatchString(name) {
		return fmt.Errorf("filename contains invalid characters; only alphanumeric, dots, hyphens, underscores, spaces, and parentheses allowed")
	}
	return nil
}
