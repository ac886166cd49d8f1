package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// DriveFiles is the subset of Google Drive the loader uses.
type DriveFiles interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
	FindFileByPath(ctx context.Context, path string) (string, error)
}

// DriveClient reads backend exports from Google Drive with a service account.
type DriveClient struct {
	srv *drive.Service
}

func NewDriveClient(ctx context.Context, credentialsJSON string) (*DriveClient, error) {
	config, err := google.JWTConfigFromJSON([]byte(credentialsJSON), drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse drive credentials: %w", err)
	}

	srv, err := drive.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Drive client: %w", err)
	}

	return &DriveClient{srv: srv}, nil
}

// Download returns the content of a file.
func (d *DriveClient) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := d.srv.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("unable to download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, fmt.Errorf("unable to read file %s: %w", fileID, err)
	}
	return buf.Bytes(), nil
}

// FindFileByPath walks folder names from the root and returns the id of the
// last path element, which may be a file.
func (d *DriveClient) FindFileByPath(ctx context.Context, path string) (string, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	currentID := "root"

	for i, name := range parts {
		if name == "" {
			continue
		}

		q := fmt.Sprintf("'%s' in parents and name='%s' and trashed=false", currentID, escapeQuery(name))
		if i < len(parts)-1 {
			q += " and mimeType='application/vnd.google-apps.folder'"
		}

		result, err := d.srv.Files.List().Q(q).Fields("files(id, name)").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("error finding %s: %w", name, err)
		}
		if len(result.Files) == 0 {
			return "", fmt.Errorf("not found: %s", name)
		}
		currentID = result.Files[0].Id
	}

	if currentID == "root" {
		return "", fmt.Errorf("drive path %q names no file", path)
	}
	return currentID, nil
}

func escapeQuery(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}

var _ DriveFiles = (*DriveClient)(nil)
