package cmd

import (
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"os"

	"github.com/nandhiniannika/online-voting/internal/config"
	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/embedding"
	"github.com/nandhiniannika/online-voting/internal/enrollment"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/frames"
	"github.com/nandhiniannika/online-voting/internal/imaging"
	"github.com/nandhiniannika/online-voting/internal/metrics"
	"github.com/nandhiniannika/online-voting/internal/notify"
	"github.com/nandhiniannika/online-voting/internal/tracing"
	"github.com/nandhiniannika/online-voting/internal/verification"

	// Store backends register themselves with the database package.
	_ "github.com/nandhiniannika/online-voting/internal/database/filestore"
	_ "github.com/nandhiniannika/online-voting/internal/database/postgres"
	_ "github.com/nandhiniannika/online-voting/internal/database/sqlstore"
)

// engine holds the components every command shares.
type engine struct {
	cfg       *config.Config
	store     *database.IdentityStore
	provider  embedding.Provider
	matcher   *facematch.Matcher
	publisher notify.Publisher
	metrics   *metrics.Registry

	shutdownTracing func(context.Context) error
}

// openEngine loads configuration and opens the store, provider and publisher.
// reg may be nil when nothing exposes metrics.
func openEngine(ctx context.Context, reg *metrics.Registry) (*engine, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	e := &engine{
		cfg:     cfg,
		matcher: facematch.NewMatcher(cfg.Matching.Threshold, facematch.Strategy(cfg.Matching.Strategy)),
		metrics: reg,
	}

	shutdown, err := tracing.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	e.shutdownTracing = shutdown

	backend, err := database.OpenBackend(ctx, cfg.Store.Backend, database.BackendOptions{
		Path:         cfg.Store.Path,
		URL:          cfg.Store.URL,
		MaxOpenConns: cfg.Store.MaxOpenConns,
		MaxIdleConns: cfg.Store.MaxIdleConns,
	})
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("opening %s store: %w", cfg.Store.Backend, err)
	}
	store, err := database.Open(ctx, backend)
	if err != nil {
		_ = backend.Close()
		e.Close()
		return nil, err
	}
	e.store = store
	reg.SetStoreRecords(store.Len())

	provider, err := embedding.New(cfg.Embedding)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	e.provider = embedding.WithTracing(provider)

	publisher, err := notify.New(cfg.MQTT)
	if err != nil {
		// Events are informational; the engine works without them.
		log.Printf("Warning: MQTT disabled: %v", err)
		publisher = notify.Noop{}
	}
	e.publisher = publisher

	return e, nil
}

func (e *engine) enroller() *enrollment.Enroller {
	return &enrollment.Enroller{
		Store:     e.store,
		Provider:  e.provider,
		Matcher:   e.matcher,
		Metrics:   e.metrics,
		Publisher: e.publisher,
	}
}

func (e *engine) verifier() *verification.Verifier {
	return &verification.Verifier{
		Store:    e.store,
		Provider: e.provider,
		Matcher:  e.matcher,
		Settings: verification.Settings{
			Window:         e.cfg.Session.Window,
			AcquireTimeout: e.cfg.Session.AcquireTimeout,
			Mirror:         e.cfg.Frames.Mirror,
			Scale:          e.cfg.Frames.Scale,
		},
		Metrics:   e.metrics,
		Publisher: e.publisher,
	}
}

// opener resolves a frame source by name; empty selects the configured one.
func (e *engine) opener(source string) (frames.Opener, error) {
	if source == "" {
		source = e.cfg.Frames.Source
	}
	return frames.NewOpener(source, e.cfg.Frames)
}

// Close releases everything openEngine acquired. Safe on a partially opened engine.
func (e *engine) Close() {
	if e.publisher != nil {
		if err := e.publisher.Close(); err != nil {
			log.Printf("Warning: closing publisher: %v", err)
		}
	}
	if c, ok := e.provider.(io.Closer); ok {
		if err := c.Close(); err != nil {
			log.Printf("Warning: closing embedding provider: %v", err)
		}
	}
	if e.store != nil {
		if err := e.store.Close(); err != nil {
			log.Printf("Warning: closing identity store: %v", err)
		}
	}
	if e.shutdownTracing != nil {
		if err := e.shutdownTracing(context.Background()); err != nil {
			log.Printf("Warning: flushing traces: %v", err)
		}
	}
}

// loadImage reads and decodes an image from disk.
func loadImage(path string) (image.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}
