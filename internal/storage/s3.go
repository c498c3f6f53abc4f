package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/cbr9/organizer/internal/resource"
	"github.com/cbr9/organizer/internal/rule"
	"github.com/cbr9/organizer/internal/xerrors"
)

// S3Config configures an S3 (or S3-compatible) storage backend.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Region is the AWS region. Empty uses the SDK's default chain.
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain), required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return xerrors.Configf("S3 storage requires a bucket", nil)
	}
	return nil
}

// S3 is a Provider backed by an S3 bucket. Objects under a "directory"
// key prefix stand in for the filesystem tree; there are no real
// directories, so Mkdir is a no-op and ReadDir/Discover group objects by
// their "/"-delimited prefixes.
type S3 struct {
	client *s3.Client
	bucket string
}

// DialS3 builds an S3 provider using the AWS SDK's default credential
// chain (environment variables, shared config, or an IAM role), or a
// custom endpoint for S3-compatible providers.
func DialS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, xerrors.Storagef("load AWS config failed", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Prefix() string        { return "s3" }
func (s *S3) Home() (string, error) { return "/", nil }

func (s *S3) key(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

func (s *S3) Metadata(ctx context.Context, p string) (Metadata, error) {
	key := s.key(p)
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		if isDirKey(ctx, s, key) {
			return Metadata{IsDir: true}, nil
		}
		return Metadata{}, xerrors.Iof(p, "", "s3 head object failed", err)
	}
	m := Metadata{Size: aws.ToInt64(out.ContentLength)}
	if out.LastModified != nil {
		m.MTime = *out.LastModified
	}
	return m, nil
}

// isDirKey reports whether key has at least one object beneath it,
// standing in for "this key names a directory" since S3 has none.
func isDirKey(ctx context.Context, s *S3, key string) bool {
	prefix := key
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  &s.bucket,
		Prefix:  &prefix,
		MaxKeys: aws.Int32(1),
	})
	return err == nil && len(out.Contents) > 0
}

func (s *S3) ReadDir(ctx context.Context, p string) ([]string, error) {
	prefix := s.key(p)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	delim := "/"
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:    &s.bucket,
		Prefix:    &prefix,
		Delimiter: &delim,
	})
	if err != nil {
		return nil, xerrors.Iof(p, "", "s3 list objects failed", err)
	}

	var names []string
	for _, cp := range out.CommonPrefixes {
		names = append(names, strings.TrimSuffix(strings.TrimPrefix(aws.ToString(cp.Prefix), prefix), "/"))
	}
	for _, obj := range out.Contents {
		name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
		if name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *S3) Read(ctx context.Context, p string) ([]byte, error) {
	key := s.key(p)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return nil, xerrors.Iof(p, "", "s3 get object failed", err)
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, xerrors.Iof(p, "", "s3 read object body failed", err)
	}
	return data, nil
}

func (s *S3) Write(ctx context.Context, p string, data []byte) error {
	key := s.key(p)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return xerrors.Iof(p, "", "s3 put object failed", err)
	}
	return nil
}

// Discover lists every object under loc.Path up to loc.Options.MaxDepth,
// depth counted by "/"-separated key segments beyond the root prefix.
func (s *S3) Discover(ctx context.Context, host string, loc rule.Location) ([]*resource.Resource, error) {
	prefix := s.key(loc.Path)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var out []*resource.Resource
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: &s.bucket,
		Prefix: &prefix,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, xerrors.Iof(loc.Path, "", "s3 discover failed", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			rel := strings.TrimPrefix(key, prefix)
			if rel == "" {
				continue
			}
			depth := strings.Count(rel, "/") + 1
			if depth < loc.Options.MinDepth || depth > loc.Options.MaxDepth {
				continue
			}
			if !loc.Options.Hidden && strings.HasPrefix(path.Base(rel), ".") {
				continue
			}
			out = append(out, resource.New(host, "/"+key, loc.Path, false))
		}
	}
	return out, nil
}

// Mkdir is a no-op: S3 has no real directories, only key prefixes that
// appear once an object is written beneath them.
func (s *S3) Mkdir(context.Context, string) error { return nil }

func (s *S3) Move(ctx context.Context, from, to string) error {
	if err := s.Copy(ctx, from, to); err != nil {
		return err
	}
	return s.Delete(ctx, from)
}

func (s *S3) Copy(ctx context.Context, from, to string) error {
	src := s.bucket + "/" + s.key(from)
	dstKey := s.key(to)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     &s.bucket,
		CopySource: &src,
		Key:        &dstKey,
	})
	if err != nil {
		return xerrors.Iof(from, to, "s3 copy object failed", err)
	}
	return nil
}

func (s *S3) Delete(ctx context.Context, p string) error {
	key := s.key(p)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return xerrors.Iof(p, "", "s3 delete object failed", err)
	}
	return nil
}

func (s *S3) Download(ctx context.Context, from string) ([]byte, error) {
	return s.Read(ctx, from)
}

func (s *S3) Upload(ctx context.Context, local []byte, to string) error {
	return s.Write(ctx, to, local)
}

// Hardlink and Symlink have no S3 equivalent: an object has exactly one
// location, and S3 offers no alias mechanism short of a full copy.
func (s *S3) Hardlink(context.Context, string, string) error {
	return xerrors.OutOfScopef("s3 storage does not support hardlinks")
}

func (s *S3) Symlink(context.Context, string, string) error {
	return xerrors.OutOfScopef("s3 storage does not support symlinks")
}

func (s *S3) Exists(ctx context.Context, p string) (bool, error) {
	key := s.key(p)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: &s.bucket, Key: &key})
	if err == nil {
		return true, nil
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return isDirKey(ctx, s, key), nil
	}
	return false, xerrors.Iof(p, "", "s3 head object failed", err)
}
