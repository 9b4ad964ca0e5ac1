package embedding

import (
	"context"
	"image"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/nandhiniannika/online-voting/internal/embedding"

type tracedProvider struct {
	next Provider
}

// WithTracing wraps p so every Detect call is recorded as a span.
func WithTracing(p Provider) Provider {
	return &tracedProvider{next: p}
}

func (t *tracedProvider) Detect(ctx context.Context, img image.Image) ([]Face, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "embedding.Detect")
	defer span.End()

	b := img.Bounds()
	span.SetAttributes(attribute.Int("image.width", b.Dx()), attribute.Int("image.height", b.Dy()))

	faces, err := t.next.Detect(ctx, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("faces.count", len(faces)))
	return faces, nil
}

// Close closes the wrapped provider when it holds resources.
func (t *tracedProvider) Close() error {
	if c, ok := t.next.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
