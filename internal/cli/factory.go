package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/hupe1980/ebitmap"
	"github.com/hupe1980/ebitmap/blobstore"
	"github.com/hupe1980/ebitmap/blobstore/minio"
	"github.com/hupe1980/ebitmap/blobstore/s3"
	"github.com/hupe1980/ebitmap/codec"
	"github.com/hupe1980/ebitmap/internal/cache"
	"github.com/hupe1980/ebitmap/internal/resource"
	"github.com/hupe1980/ebitmap/snapshot"
)

// Factory carries the global flags and builds the runtime and stores every
// command works with.
type Factory struct {
	StoreDir      string
	S3Bucket      string
	S3Prefix      string
	MinioEndpoint string
	MinioBucket   string
	MinioSecure   bool
	Compression   string
	Codec         string
	LogLevel      string
	IOLimit       int64
	MemoryLimit   int64
	CacheBytes    int64

	// Stderr receives log output. Defaults to os.Stderr.
	Stderr io.Writer

	rc *resource.Controller
}

// NewFactory returns a Factory with default flag values.
func NewFactory() *Factory {
	return &Factory{
		StoreDir:    ".ebitmap",
		Compression: snapshot.CompressionLZ4.String(),
		Codec:       codec.Default.Name(),
		LogLevel:    "warn",
		CacheBytes:  64 << 20,
		Stderr:      os.Stderr,
	}
}

// BindFlags registers the global flags on flags.
func (f *Factory) BindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&f.StoreDir, "store", f.StoreDir, "directory holding snapshots")
	flags.StringVar(&f.S3Bucket, "s3-bucket", f.S3Bucket, "store snapshots in this S3 bucket instead of --store (credentials from the default AWS chain)")
	flags.StringVar(&f.S3Prefix, "s3-prefix", f.S3Prefix, "key prefix inside --s3-bucket or --minio-bucket")
	flags.StringVar(&f.MinioEndpoint, "minio-endpoint", f.MinioEndpoint, "store snapshots on this MinIO endpoint (credentials from MINIO_ACCESS_KEY and MINIO_SECRET_KEY)")
	flags.StringVar(&f.MinioBucket, "minio-bucket", f.MinioBucket, "bucket on --minio-endpoint")
	flags.BoolVar(&f.MinioSecure, "minio-secure", f.MinioSecure, "use TLS for --minio-endpoint")
	flags.StringVar(&f.Compression, "compression", f.Compression, "snapshot compression: none, lz4 or zstd")
	flags.StringVar(&f.Codec, "codec", f.Codec, "manifest codec: "+strings.Join(codec.Names(), ", "))
	flags.StringVar(&f.LogLevel, "log-level", f.LogLevel, "log level: debug, info, warn or error")
	flags.Int64Var(&f.IOLimit, "io-limit", f.IOLimit, "bytes per second for input files and snapshot transfers, 0 for unlimited")
	flags.Int64Var(&f.MemoryLimit, "memory-limit", f.MemoryLimit, "bytes of live bitmaps, 0 for unlimited")
	flags.Int64Var(&f.CacheBytes, "cache-bytes", f.CacheBytes, "bytes of snapshot blobs cached in memory, 0 to disable")
}

// Validate checks the global flags.
func (f *Factory) Validate() error {
	if _, err := snapshot.ParseCompression(f.Compression); err != nil {
		return err
	}
	if _, ok := codec.ByName(f.Codec); !ok {
		return fmt.Errorf("unknown codec %q", f.Codec)
	}
	if _, err := f.level(); err != nil {
		return err
	}
	if f.S3Bucket != "" && f.MinioEndpoint != "" {
		return errors.New("--s3-bucket and --minio-endpoint are mutually exclusive")
	}
	if f.MinioEndpoint != "" && f.MinioBucket == "" {
		return errors.New("--minio-endpoint requires --minio-bucket")
	}
	return nil
}

func (f *Factory) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(f.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", f.LogLevel)
	}
	return l, nil
}

// Resources returns the controller metering file input. It is created once.
func (f *Factory) Resources() *resource.Controller {
	if f.rc == nil {
		f.rc = resource.NewController(resource.Config{IOLimitBytesPerSec: f.IOLimit})
	}
	return f.rc
}

// Runtime creates a Runtime configured from the global flags.
func (f *Factory) Runtime() (*ebitmap.Runtime, error) {
	level, err := f.level()
	if err != nil {
		return nil, err
	}
	logger := ebitmap.NewLogger(slog.NewTextHandler(f.Stderr, &slog.HandlerOptions{Level: level}))
	return ebitmap.New(
		ebitmap.WithLogger(logger),
		ebitmap.WithMemoryLimit(f.MemoryLimit),
		ebitmap.WithIOLimit(f.IOLimit),
		ebitmap.WithMaxBackgroundWorkers(4),
	), nil
}

// Blobs opens the configured blob store.
func (f *Factory) Blobs(ctx context.Context) (blobstore.Store, error) {
	var (
		store blobstore.Store
		id    string
	)
	switch {
	case f.S3Bucket != "":
		s, err := s3.NewFromEnv(ctx, f.S3Bucket, f.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("open s3 bucket %s: %w", f.S3Bucket, err)
		}
		store, id = s, "s3://"+f.S3Bucket+"/"+f.S3Prefix
	case f.MinioEndpoint != "":
		s, err := minio.Dial(f.MinioEndpoint, os.Getenv("MINIO_ACCESS_KEY"), os.Getenv("MINIO_SECRET_KEY"), f.MinioSecure, f.MinioBucket, f.S3Prefix)
		if err != nil {
			return nil, fmt.Errorf("open minio bucket %s: %w", f.MinioBucket, err)
		}
		store, id = s, "minio://"+f.MinioEndpoint+"/"+f.MinioBucket+"/"+f.S3Prefix
	default:
		store, id = blobstore.NewLocalStore(f.StoreDir), "file://"+f.StoreDir
	}

	if f.CacheBytes > 0 {
		store = blobstore.NewCachingStore(store, cache.NewLRU(f.CacheBytes, nil), id)
	}
	return store, nil
}

// Snapshots opens the snapshot store for rt.
func (f *Factory) Snapshots(ctx context.Context, rt *ebitmap.Runtime) (*snapshot.Store, error) {
	blobs, err := f.Blobs(ctx)
	if err != nil {
		return nil, err
	}
	comp, err := snapshot.ParseCompression(f.Compression)
	if err != nil {
		return nil, err
	}
	c, _ := codec.ByName(f.Codec)
	return rt.SnapshotStore(blobs, snapshot.WithCompression(comp), snapshot.WithCodec(c)), nil
}

// session bundles what a command needs once flags are validated.
type session struct {
	rt    *ebitmap.Runtime
	store *snapshot.Store
}

func (f *Factory) open(ctx context.Context) (*session, error) {
	rt, err := f.Runtime()
	if err != nil {
		return nil, err
	}
	store, err := f.Snapshots(ctx, rt)
	if err != nil {
		return nil, err
	}
	return &session{rt: rt, store: store}, nil
}

func (s *session) Close() error {
	return s.rt.Close()
}
