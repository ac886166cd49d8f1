package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedRef is returned for references whose scheme is unknown or
// whose backend is not configured.
var ErrUnsupportedRef = errors.New("unsupported source reference")

// Scheme names accepted in references.
const (
	SchemeFile  = "file"
	SchemeS3    = "s3"
	SchemeDrive = "drive"
)

// Ref is a parsed source reference: s3://bucket/key, drive://<file id or
// folder/path/file>, file://path or a bare path.
type Ref struct {
	Scheme string
	Bucket string
	Path   string
}

func (r Ref) String() string {
	switch r.Scheme {
	case SchemeS3:
		return fmt.Sprintf("s3://%s/%s", r.Bucket, r.Path)
	case SchemeDrive:
		return "drive://" + r.Path
	}
	return r.Path
}

// ParseRef splits a reference into its parts.
func ParseRef(ref string) (Ref, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrUnsupportedRef)
	}

	scheme, rest, found := strings.Cut(ref, "://")
	if !found {
		return Ref{Scheme: SchemeFile, Path: ref}, nil
	}

	switch strings.ToLower(scheme) {
	case SchemeFile:
		return Ref{Scheme: SchemeFile, Path: rest}, nil
	case SchemeS3:
		bucket, key, _ := strings.Cut(rest, "/")
		if key == "" {
			return Ref{}, fmt.Errorf("%w: %q has no object key", ErrUnsupportedRef, ref)
		}
		return Ref{Scheme: SchemeS3, Bucket: bucket, Path: key}, nil
	case SchemeDrive:
		if strings.Trim(rest, "/") == "" {
			return Ref{}, fmt.Errorf("%w: %q has no file", ErrUnsupportedRef, ref)
		}
		return Ref{Scheme: SchemeDrive, Path: rest}, nil
	}
	return Ref{}, fmt.Errorf("%w: scheme %q", ErrUnsupportedRef, scheme)
}

// Loader fetches raw backend payloads from the configured backends.
type Loader struct {
	baseDir       string
	objects       ObjectStorage
	defaultBucket string
	drive         DriveFiles
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithObjectStorage enables s3:// references. defaultBucket is used when a
// reference leaves the bucket empty.
func WithObjectStorage(objects ObjectStorage, defaultBucket string) LoaderOption {
	return func(l *Loader) {
		l.objects = objects
		l.defaultBucket = defaultBucket
	}
}

// WithDrive enables drive:// references.
func WithDrive(d DriveFiles) LoaderOption {
	return func(l *Loader) { l.drive = d }
}

// NewLoader creates a loader. Local references are resolved inside baseDir
// and may not escape it; an empty baseDir allows any local path.
func NewLoader(baseDir string, opts ...LoaderOption) *Loader {
	l := &Loader{baseDir: baseDir}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Fetch returns the raw payload a reference points to.
func (l *Loader) Fetch(ctx context.Context, ref string) ([]byte, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}

	switch r.Scheme {
	case SchemeS3:
		if l.objects == nil {
			return nil, fmt.Errorf("%w: object storage is not configured", ErrUnsupportedRef)
		}
		return l.objects.GetObject(ctx, l.bucket(r.Bucket), r.Path)

	case SchemeDrive:
		if l.drive == nil {
			return nil, fmt.Errorf("%w: google drive is not configured", ErrUnsupportedRef)
		}
		fileID := strings.Trim(r.Path, "/")
		if strings.Contains(fileID, "/") {
			if fileID, err = l.drive.FindFileByPath(ctx, fileID); err != nil {
				return nil, err
			}
		}
		return l.drive.Download(ctx, fileID)
	}

	path, err := l.localPath(r.Path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Store writes data to an s3:// or local reference.
func (l *Loader) Store(ctx context.Context, ref string, data []byte) error {
	r, err := ParseRef(ref)
	if err != nil {
		return err
	}

	switch r.Scheme {
	case SchemeS3:
		if l.objects == nil {
			return fmt.Errorf("%w: object storage is not configured", ErrUnsupportedRef)
		}
		return l.objects.PutObject(ctx, l.bucket(r.Bucket), r.Path, data)
	case SchemeDrive:
		return fmt.Errorf("%w: google drive is read-only", ErrUnsupportedRef)
	}

	path, err := l.localPath(r.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed writing %s: %w", path, err)
	}
	return nil
}

// List returns the objects under an s3:// prefix.
func (l *Loader) List(ctx context.Context, ref string) ([]ObjectInfo, error) {
	r, err := ParseRef(ref)
	if err != nil {
		return nil, err
	}
	if r.Scheme != SchemeS3 {
		return nil, fmt.Errorf("%w: only s3:// references can be listed", ErrUnsupportedRef)
	}
	if l.objects == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", ErrUnsupportedRef)
	}
	return l.objects.ListObjects(ctx, l.bucket(r.Bucket), r.Path)
}

func (l *Loader) bucket(b string) string {
	if b == "" {
		return l.defaultBucket
	}
	return b
}

func (l *Loader) localPath(p string) (string, error) {
	if l.baseDir == "" {
		return filepath.Clean(p), nil
	}

	base, err := filepath.Abs(l.baseDir)
	if err != nil {
		return "", err
	}
	full := p
	if !filepath.IsAbs(full) {
		full = filepath.Join(base, p)
	}
	full = filepath.Clean(full)

	rel, err := filepath.Rel(base, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrUnsupportedRef, p, l.baseDir)
	}
	return full, nil
}
