package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"timesheet_app_go/config"
	"timesheet_app_go/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Archive key prefixes
const (
	ArchiveImports = "imports"
	ArchiveReports = "reports"
)

// Archive errors
var (
	ErrArchiveNotFound   = errors.New("archived file not found")
	ErrInvalidArchiveKey = errors.New("invalid archive key")
	ErrArchiveDisabled   = errors.New("archive store not configured")
)

// ArchivedFile describes one stored import upload or report workbook
type ArchivedFile struct {
	Key         string    `json:"key"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	ModifiedAt  time.Time `json:"modified_at"`
}

// ArchiveStore keeps copies of imported files and generated reports
type ArchiveStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string, size int64) (*ArchivedFile, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *ArchivedFile, error)
	List(ctx context.Context, prefix string) ([]ArchivedFile, error)
	Remove(ctx context.Context, key string) error
	// DownloadURL returns a temporary direct link, or "" when files must be streamed by the API
	DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Archives is the process-wide archive store
var Archives ArchiveStore

// InitializeArchiveStore uses Cloudflare R2 when its credentials are configured
// and reachable, the upload directory otherwise.
func InitializeArchiveStore(cfg *config.Config) {
	if cfg.R2AccountID == "" || cfg.R2AccessKeyID == "" || cfg.R2SecretAccessKey == "" || cfg.R2BucketName == "" {
		Archives = NewLocalArchive(cfg.UploadDir)
		logger.Log.Info("Archive store ready (local filesystem)", zap.String("path", cfg.UploadDir))
		return
	}

	r2, err := NewR2Archive(cfg)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, err = r2.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(r2.bucket)})
	}
	if err != nil {
		logger.Log.Warn("R2 archive unavailable, using local filesystem", zap.Error(err))
		Archives = NewLocalArchive(cfg.UploadDir)
		return
	}

	Archives = r2
	logger.Log.Info("Archive store ready (Cloudflare R2)", zap.String("bucket", cfg.R2BucketName))
}

// CleanArchiveKey validates a key or prefix from a request. It must be relative,
// free of ".." segments and live under imports/ or reports/.
func CleanArchiveKey(key string) (string, error) {
	key = strings.Trim(strings.TrimSpace(key), "/")
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidArchiveKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", ErrInvalidArchiveKey
		}
	}
	root, _, _ := strings.Cut(key, "/")
	if root != ArchiveImports && root != ArchiveReports {
		return "", ErrInvalidArchiveKey
	}
	return key, nil
}

func archiveContentType(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".csv":
		return "text/csv"
	case ".txt":
		return "text/plain"
	case ".xlsx":
		return XLSXContentType
	}
	return "application/octet-stream"
}

// newArchiveKey builds <prefix>/<uuid>_<unix><ext>
func newArchiveKey(prefix, originalFilename string, now time.Time) string {
	name := fmt.Sprintf("%s_%d%s", uuid.New().String(), now.Unix(), strings.ToLower(filepath.Ext(originalFilename)))
	return path.Join(prefix, name)
}

// ImportArchiveKey places an upload under imports/YYYY/MM/user-<id>/
func ImportArchiveKey(userID uint, uploadedAt time.Time, originalFilename string) string {
	prefix := fmt.Sprintf("%s/%s/user-%d", ArchiveImports, uploadedAt.Format("2006/01"), userID)
	return newArchiveKey(prefix, originalFilename, uploadedAt)
}

// ReportArchiveKey places a workbook under reports/<report>/<from>_<until>/
func ReportArchiveKey(report string, r DateRange, generatedAt time.Time) string {
	prefix := fmt.Sprintf("%s/%s/%s_%s", ArchiveReports, report, FormatDate(r.From), FormatDate(r.Until))
	return newArchiveKey(prefix, report+".xlsx", generatedAt)
}

// ArchiveImport stores the uploaded import file
func ArchiveImport(ctx context.Context, store ArchiveStore, userID uint, file *multipart.FileHeader) (*ArchivedFile, error) {
	if store == nil {
		return nil, ErrArchiveDisabled
	}
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	key := ImportArchiveKey(userID, time.Now(), file.Filename)
	return store.Put(ctx, key, src, archiveContentType(key), file.Size)
}

// ArchiveReport stores a generated workbook
func ArchiveReport(ctx context.Context, store ArchiveStore, report string, r DateRange, content []byte) (*ArchivedFile, error) {
	if store == nil {
		return nil, ErrArchiveDisabled
	}
	key := ReportArchiveKey(report, r, time.Now())
	return store.Put(ctx, key, bytes.NewReader(content), XLSXContentType, int64(len(content)))
}

// R2Archive stores archives in a Cloudflare R2 bucket through the S3 API
type R2Archive struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewR2Archive builds an S3 client against https://<account>.r2.cloudflarestorage.com
func NewR2Archive(cfg *config.Config) (*R2Archive, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load R2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID))
		o.UsePathStyle = true
	})

	return &R2Archive{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.R2BucketName,
	}, nil
}

func (r *R2Archive) Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*ArchivedFile, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", key, err)
	}
	return &ArchivedFile{Key: key, Name: path.Base(key), Size: size, ContentType: contentType, ModifiedAt: time.Now().UTC()}, nil
}

func (r *R2Archive) Open(ctx context.Context, key string) (io.ReadCloser, *ArchivedFile, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil, ErrArchiveNotFound
		}
		return nil, nil, fmt.Errorf("failed to read %s: %w", key, err)
	}

	info := &ArchivedFile{
		Key:         key,
		Name:        path.Base(key),
		Size:        aws.ToInt64(out.ContentLength),
		ContentType: aws.ToString(out.ContentType),
		ModifiedAt:  aws.ToTime(out.LastModified),
	}
	if info.ContentType == "" {
		info.ContentType = archiveContentType(key)
	}
	return out.Body, info, nil
}

func (r *R2Archive) List(ctx context.Context, prefix string) ([]ArchivedFile, error) {
	files := []ArchivedFile{}
	pages := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix + "/"),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			files = append(files, ArchivedFile{
				Key:         key,
				Name:        path.Base(key),
				Size:        aws.ToInt64(obj.Size),
				ContentType: archiveContentType(key),
				ModifiedAt:  aws.ToTime(obj.LastModified),
			})
		}
	}
	sortArchivedFiles(files)
	return files, nil
}

// Remove deletes an object. A missing key reports ErrArchiveNotFound.
func (r *R2Archive) Remove(ctx context.Context, key string) error {
	_, err := r.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)})
	if err != nil {
		var missing *types.NotFound
		if errors.As(err, &missing) {
			return ErrArchiveNotFound
		}
		return fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if _, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(r.bucket), Key: aws.String(key)}); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (r *R2Archive) DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(r.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%s", path.Base(key))),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return req.URL, nil
}

// LocalArchive stores archives below a directory
type LocalArchive struct {
	baseDir string
}

func NewLocalArchive(baseDir string) *LocalArchive {
	return &LocalArchive{baseDir: baseDir}
}

func (l *LocalArchive) fullPath(key string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(key))
}

func (l *LocalArchive) Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*ArchivedFile, error) {
	full := l.fullPath(key)
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	dst, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", key, err)
	}
	written, err := io.Copy(dst, body)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", key, err)
	}
	return &ArchivedFile{Key: key, Name: path.Base(key), Size: written, ContentType: contentType, ModifiedAt: time.Now().UTC()}, nil
}

func (l *LocalArchive) Open(ctx context.Context, key string) (io.ReadCloser, *ArchivedFile, error) {
	f, err := os.Open(l.fullPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, ErrArchiveNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, nil, ErrArchiveNotFound
	}
	return f, &ArchivedFile{Key: key, Name: path.Base(key), Size: st.Size(), ContentType: archiveContentType(key), ModifiedAt: st.ModTime().UTC()}, nil
}

func (l *LocalArchive) List(ctx context.Context, prefix string) ([]ArchivedFile, error) {
	files := []ArchivedFile{}
	err := filepath.WalkDir(l.fullPath(prefix), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		files = append(files, ArchivedFile{
			Key:         key,
			Name:        path.Base(key),
			Size:        info.Size(),
			ContentType: archiveContentType(key),
			ModifiedAt:  info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	sortArchivedFiles(files)
	return files, nil
}

func (l *LocalArchive) Remove(ctx context.Context, key string) error {
	err := os.Remove(l.fullPath(key))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrArchiveNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DownloadURL is always empty: local files are streamed by the API.
func (l *LocalArchive) DownloadURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}

// sortArchivedFiles orders newest first, then by key
func sortArchivedFiles(files []ArchivedFile) {
	sort.Slice(files, func(i, j int) bool {
		if !files[i].ModifiedAt.Equal(files[j].ModifiedAt) {
			return files[i].ModifiedAt.After(files[j].ModifiedAt)
		}
		return files[i].Key < files[j].Key
	})
}
