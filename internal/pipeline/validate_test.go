package pipeline

import (
	"errors"
	"testing"
)

func validUploadRequest() *Request {
	return &Request{
		OwnerID: "owner-1",
		Metadata: UploadMetadata{
			TemplateName: "UVDTF 16oz",
		},
		Files: []FileUpload{
			{Filename: "front.png", ContentType: "image/png", Data: []byte{1}},
			{Filename: "back design (v2).jpg", ContentType: "image/jpeg", Data: []byte{2}},
		},
	}
}

func TestValidateRequestAccepts(t *testing.T) {
	req := validUploadRequest()
	req.SessionID = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	req.ShopID = "shop-9"
	req.Files[0].ContentType = "" // sniffed by the decoder instead

	if err := validateRequest(req); err != nil {
		t.Fatalf("validateRequest() error = %v", err)
	}
}

func TestValidateRequestRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Request)
		field  string
	}{
		{"missing owner", func(r *Request) { r.OwnerID = "" }, "ownerId"},
		{"malformed session id", func(r *Request) { r.SessionID = "not-a-uuid" }, "sessionId"},
		{"missing template", func(r *Request) { r.Metadata.TemplateName = "" }, "templateName"},
		{"template with slash", func(r *Request) { r.Metadata.TemplateName = "a/b" }, "templateName"},
		{"no files", func(r *Request) { r.Files = nil }, "files"},
		{"empty filename", func(r *Request) { r.Files[0].Filename = "" }, "files[0]"},
		{"path traversal", func(r *Request) { r.Files[0].Filename = "../../etc/passwd" }, "files[0]"},
		{"backslash in filename", func(r *Request) { r.Files[0].Filename = `designs\a.png` }, "files[0]"},
		{"leading dot", func(r *Request) { r.Files[0].Filename = ".hidden.png" }, "files[0]"},
		{"unsupported content type", func(r *Request) { r.Files[1].ContentType = "application/pdf" }, "files[1]"},
		{"empty file data", func(r *Request) { r.Files[1].Data = nil }, "files[1]"},
		{"duplicate filename", func(r *Request) { r.Files[1].Filename = r.Files[0].Filename }, "files[1]"},
		{"storage name collision", func(r *Request) { r.Files[1].Filename = "front.jpg" }, "files[1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validUploadRequest()
			tt.mutate(req)

			err := validateRequest(req)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("validateRequest() error = %v, want a ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}
