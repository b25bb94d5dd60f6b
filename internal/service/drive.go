package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	driveDocMime    = "application/vnd.google-apps.document"
	driveFileFields = "id, name, mimeType, webViewLink, modifiedTime"
	driveMaxContent = 1 << 20
)

// GoogleDrive manages Docs and plain files. With only an API key it can read
// public files; writes need service-account credentials.
type GoogleDrive struct {
	svc *drive.Service
}

func NewGoogleDrive(ctx context.Context, credentialsFile, apiKey string, extra ...option.ClientOption) (*GoogleDrive, error) {
	var opts []option.ClientOption
	switch {
	case credentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(credentialsFile), option.WithScopes(drive.DriveScope))
	case apiKey != "":
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, extra...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive.NewService: %w", err)
	}
	return &GoogleDrive{svc: svc}, nil
}

func driveDocument(f *drive.File) Document {
	return Document{ID: f.Id, Title: f.Name, URL: f.WebViewLink, MimeType: f.MimeType, UpdatedAt: f.ModifiedTime}
}

func (g *GoogleDrive) Create(ctx context.Context, in DocumentInput) (*Document, error) {
	meta := &drive.File{Name: in.Title, MimeType: driveDocMime}
	if in.Parent != "" {
		meta.Parents = []string{in.Parent}
	}
	f, err := g.svc.Files.Create(meta).
		Media(strings.NewReader(in.Content), googleapi.ContentType("text/plain")).
		Fields(driveFileFields).
		Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_drive", err)
	}
	d := driveDocument(f)
	return &d, nil
}

// Read returns metadata plus text content: Google Docs are exported as plain
// text, text/* files are downloaded, anything else comes back without content.
func (g *GoogleDrive) Read(ctx context.Context, id string) (*Document, error) {
	f, err := g.svc.Files.Get(id).Fields(driveFileFields).Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_drive", err)
	}
	d := driveDocument(f)

	var body io.ReadCloser
	switch {
	case f.MimeType == driveDocMime:
		res, err := g.svc.Files.Export(id, "text/plain").Context(ctx).Download()
		if err != nil {
			return nil, googleError("google_drive", err)
		}
		body = res.Body
	case strings.HasPrefix(f.MimeType, "text/"):
		res, err := g.svc.Files.Get(id).Context(ctx).Download()
		if err != nil {
			return nil, googleError("google_drive", err)
		}
		body = res.Body
	default:
		return &d, nil
	}
	defer body.Close()

	raw, err := io.ReadAll(io.LimitReader(body, driveMaxContent))
	if err != nil {
		return nil, fmt.Errorf("google_drive: read content: %w", err)
	}
	d.Content = strings.TrimPrefix(string(raw), "\ufeff")
	return &d, nil
}

func (g *GoogleDrive) Update(ctx context.Context, id string, in DocumentInput) (*Document, error) {
	call := g.svc.Files.Update(id, &drive.File{Name: in.Title}).Fields(driveFileFields)
	if in.Content != "" {
		call = call.Media(strings.NewReader(in.Content), googleapi.ContentType("text/plain"))
	}
	f, err := call.Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_drive", err)
	}
	d := driveDocument(f)
	return &d, nil
}

// list runs a files query. Drive refuses orderBy on fullText queries, so
// search passes an empty order.
func (g *GoogleDrive) list(ctx context.Context, q, orderBy string, limit int) ([]Document, error) {
	call := g.svc.Files.List().Q(q).PageSize(int64(limit)).Fields("files(" + driveFileFields + ")")
	if orderBy != "" {
		call = call.OrderBy(orderBy)
	}
	fl, err := call.Context(ctx).Do()
	if err != nil {
		return nil, googleError("google_drive", err)
	}
	out := make([]Document, 0, len(fl.Files))
	for _, f := range fl.Files {
		out = append(out, driveDocument(f))
	}
	return out, nil
}

func (g *GoogleDrive) Search(ctx context.Context, query string, limit int) ([]Document, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(query)
	return g.list(ctx, fmt.Sprintf("fullText contains '%s' and trashed = false", escaped), "", limit)
}

func (g *GoogleDrive) List(ctx context.Context, limit int) ([]Document, error) {
	return g.list(ctx, "trashed = false", "modifiedTime desc", limit)
}
