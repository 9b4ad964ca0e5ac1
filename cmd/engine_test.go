package cmd

import (
	"context"
	"image"
	"path/filepath"
	"testing"

	embmock "github.com/nandhiniannika/online-voting/internal/embedding/mock"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/frames"
	"github.com/nandhiniannika/online-voting/internal/metrics"
)

func setFileStoreEnv(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "identities.gob")
	t.Setenv("STORE_BACKEND", "file")
	t.Setenv("STORE_PATH", path)
	t.Setenv("EMBEDDING_PROVIDER", "http")
	t.Setenv("EMBEDDING_URL", "http://127.0.0.1:1")
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("MATCH_THRESHOLD", "0.5")
	t.Setenv("MATCH_STRATEGY", "linear")
	return path
}

func TestOpenEngine_FileStoreRoundTrip(t *testing.T) {
	setFileStoreEnv(t)
	ctx := context.Background()
	emb := []float32{0.1, 0.2, 0.3}

	eng, err := openEngine(ctx, metrics.NewRegistry())
	if err != nil {
		t.Fatalf("openEngine: %v", err)
	}
	if eng.store.BackendName() != "file" {
		t.Errorf("expected file backend, got %q", eng.store.BackendName())
	}
	if eng.store.Len() != 0 {
		t.Fatalf("expected empty store, got %d records", eng.store.Len())
	}

	eng.provider = embmock.NewMockProvider(embmock.WithEmbeddings(emb))
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	if _, err := eng.enroller().Enroll(ctx, "voter-1", img); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	verdict, err := eng.verifier().VerifyImage(ctx, "voter-1", img)
	if err != nil {
		t.Fatalf("VerifyImage: %v", err)
	}
	if !verdict.Accepted() {
		t.Errorf("expected accepted verdict, got %s", verdict.Outcome)
	}
	eng.Close()

	reopened, err := openEngine(ctx, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if reopened.store.Len() != 1 {
		t.Errorf("expected 1 persisted record, got %d", reopened.store.Len())
	}
}

func TestOpenEngine_InvalidConfig(t *testing.T) {
	setFileStoreEnv(t)
	t.Setenv("STORE_BACKEND", "cassandra")

	if _, err := openEngine(context.Background(), nil); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestEngine_VerifierSettingsFromConfig(t *testing.T) {
	setFileStoreEnv(t)
	t.Setenv("SESSION_WINDOW", "2s")
	t.Setenv("FRAME_MIRROR", "false")
	t.Setenv("FRAME_SCALE", "0.25")
	t.Setenv("MATCH_STRATEGY", "hnsw")

	eng, err := openEngine(context.Background(), nil)
	if err != nil {
		t.Fatalf("openEngine: %v", err)
	}
	defer eng.Close()

	s := eng.verifier().Settings
	if s.Window.Seconds() != 2 || s.Mirror || s.Scale != 0.25 {
		t.Errorf("unexpected settings %+v", s)
	}
	if eng.matcher.Strategy != facematch.StrategyHNSW {
		t.Errorf("expected hnsw strategy, got %q", eng.matcher.Strategy)
	}
}

func TestEngine_Opener(t *testing.T) {
	setFileStoreEnv(t)
	t.Setenv("FRAME_SOURCE", "local")
	t.Setenv("VIDEO_STREAM_URL", "http://camera:5001/video_feed")

	eng, err := openEngine(context.Background(), nil)
	if err != nil {
		t.Fatalf("openEngine: %v", err)
	}
	defer eng.Close()

	tests := []struct {
		source  string
		want    string
		wantErr bool
	}{
		{source: "", want: "local"},
		{source: "stream", want: "stream"},
		{source: "webcam", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			opener, err := eng.opener(tt.source)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("opener: %v", err)
			}
			switch opener.(type) {
			case *frames.LocalOpener:
				if tt.want != "local" {
					t.Errorf("got local opener, want %s", tt.want)
				}
			case *frames.StreamOpener:
				if tt.want != "stream" {
					t.Errorf("got stream opener, want %s", tt.want)
				}
			default:
				t.Errorf("unexpected opener %T", opener)
			}
		})
	}
}
