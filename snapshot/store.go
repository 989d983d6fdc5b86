package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/ebitmap/blobstore"
	"github.com/hupe1980/ebitmap/codec"
	"github.com/hupe1980/ebitmap/internal/rbm"
	"github.com/hupe1980/ebitmap/internal/resource"
	"github.com/hupe1980/ebitmap/internal/wallclock"
	"golang.org/x/sync/errgroup"
)

const (
	payloadSuffix  = ".rbm"
	manifestSuffix = ".json"
)

// ErrNotFound is returned when no snapshot of the given name exists.
var ErrNotFound = errors.New("snapshot: not found")

// Manifest describes a stored snapshot.
type Manifest struct {
	Name         string         `json:"name"`
	Compression  string         `json:"compression"`
	Codec        string         `json:"codec"`
	PayloadBytes int            `json:"payload_bytes"`
	StoredBytes  int            `json:"stored_bytes"`
	CreatedAt    time.Time      `json:"created_at"`
	Statistics   rbm.Statistics `json:"statistics"`
}

// Item is one entry of a SaveAll batch.
type Item struct {
	Data       []byte
	Statistics rbm.Statistics
}

// Store persists serialized bitmaps in a blob store. Each snapshot is a
// payload blob <name>.rbm holding an envelope, and a manifest <name>.json.
type Store struct {
	blobs       blobstore.Store
	codec       codec.Codec
	compression Compression
	rc          *resource.Controller
	clock       wallclock.WallClock
	logger      *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithCodec sets the manifest codec. Default: codec.Default.
func WithCodec(c codec.Codec) Option {
	return func(s *Store) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithCompression sets the payload compression for new snapshots.
func WithCompression(c Compression) Option {
	return func(s *Store) {
		s.compression = c
	}
}

// WithResources meters transfers and bounds SaveAll concurrency.
func WithResources(rc *resource.Controller) Option {
	return func(s *Store) {
		s.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the clock used for manifest timestamps.
func WithClock(c wallclock.WallClock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewStore creates a snapshot store over blobs.
func NewStore(blobs blobstore.Store, optFns ...Option) *Store {
	s := &Store{
		blobs:  blobs,
		codec:  codec.Default,
		clock:  wallclock.Instance,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range optFns {
		fn(s)
	}
	return s
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("snapshot: invalid name %q", name)
	}
	return nil
}

// Save stores data under name, replacing any previous snapshot of that name.
// The payload is written before the manifest, so a listed snapshot always
// has its payload.
func (s *Store) Save(ctx context.Context, name string, data []byte, stats rbm.Statistics) (Manifest, error) {
	if err := validName(name); err != nil {
		return Manifest{}, err
	}

	env, err := Encode(data, s.compression)
	if err != nil {
		return Manifest{}, err
	}
	c := Compression(env[4])

	if err := s.rc.AcquireIO(ctx, len(env)); err != nil {
		return Manifest{}, err
	}
	if err := s.blobs.Put(ctx, name+payloadSuffix, env); err != nil {
		return Manifest{}, fmt.Errorf("snapshot: save %s: %w", name, err)
	}

	m := Manifest{
		Name:         name,
		Compression:  c.String(),
		Codec:        s.codec.Name(),
		PayloadBytes: len(data),
		StoredBytes:  len(env),
		CreatedAt:    s.clock.Now().UTC(),
		Statistics:   stats,
	}
	mb, err := s.codec.Marshal(m)
	if err != nil {
		return Manifest{}, fmt.Errorf("snapshot: encode manifest: %w", err)
	}
	if err := s.blobs.Put(ctx, name+manifestSuffix, mb); err != nil {
		return Manifest{}, fmt.Errorf("snapshot: save %s manifest: %w", name, err)
	}

	s.logger.Info("snapshot saved",
		"name", name,
		"compression", m.Compression,
		"payload_bytes", m.PayloadBytes,
		"stored_bytes", m.StoredBytes,
	)
	return m, nil
}

// Manifest reads the manifest of name.
func (s *Store) Manifest(ctx context.Context, name string) (Manifest, error) {
	if err := validName(name); err != nil {
		return Manifest{}, err
	}
	mb, err := s.blobs.Get(ctx, name+manifestSuffix)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return Manifest{}, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return Manifest{}, err
	}
	var m Manifest
	if err := s.codec.Unmarshal(mb, &m); err != nil {
		return Manifest{}, fmt.Errorf("%w: manifest %s: %w", ErrCorrupt, name, err)
	}
	return m, nil
}

// Load returns the serialized bitmap stored under name.
func (s *Store) Load(ctx context.Context, name string) ([]byte, Manifest, error) {
	m, err := s.Manifest(ctx, name)
	if err != nil {
		return nil, Manifest{}, err
	}

	env, err := s.blobs.Get(ctx, name+payloadSuffix)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, Manifest{}, fmt.Errorf("%w: %s payload", ErrNotFound, name)
		}
		return nil, Manifest{}, err
	}
	if err := s.rc.AcquireIO(ctx, len(env)); err != nil {
		return nil, Manifest{}, err
	}

	data, _, err := Decode(env)
	if err != nil {
		return nil, Manifest{}, fmt.Errorf("snapshot %s: %w", name, err)
	}
	if len(data) != m.PayloadBytes {
		return nil, Manifest{}, fmt.Errorf("%w: %s payload is %d bytes, manifest says %d", ErrCorrupt, name, len(data), m.PayloadBytes)
	}

	s.logger.Debug("snapshot loaded", "name", name, "payload_bytes", len(data))
	return data, m, nil
}

// Delete removes the snapshot. Deleting a missing snapshot is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, name+manifestSuffix); err != nil {
		return err
	}
	return s.blobs.Delete(ctx, name+payloadSuffix)
}

// List returns the names of all snapshots in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	blobs, err := s.blobs.List(ctx, "")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, b := range blobs {
		if name, ok := strings.CutSuffix(b, manifestSuffix); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// SaveAll saves every item concurrently. Concurrency is bounded by the
// resource controller's background slots; the first error cancels the rest.
func (s *Store) SaveAll(ctx context.Context, items map[string]Item) error {
	g, gctx := errgroup.WithContext(ctx)
	for name, it := range items {
		g.Go(func() error {
			if err := s.rc.AcquireBackground(gctx); err != nil {
				return err
			}
			defer s.rc.ReleaseBackground()

			_, err := s.Save(gctx, name, it.Data, it.Statistics)
			return err
		})
	}
	return g.Wait()
}
