// Package enrollment adds a person's face to the identity store.
package enrollment

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/embedding"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/metrics"
	"github.com/nandhiniannika/online-voting/internal/notify"
	"github.com/nandhiniannika/online-voting/internal/tracing"
)

// Store is the part of the identity store enrollment needs.
type Store interface {
	Append(ctx context.Context, key string, embedding []float32) (database.IdentityRecord, error)
	Snapshot() *database.Snapshot
}

// Result of a successful enrollment.
type Result struct {
	Record        database.IdentityRecord `json:"record"`
	FacesDetected int                     `json:"faces_detected"`
	Records       int                     `json:"records"` // store size after the append

	// PossibleDuplicateOf names a different enrolled key the new face already
	// matches. Duplicates are kept; this is informational.
	PossibleDuplicateOf string  `json:"possible_duplicate_of,omitempty"`
	DuplicateDistance   float64 `json:"duplicate_distance,omitempty"`
}

// Enroller runs the enrollment flow. Metrics and Publisher are optional.
type Enroller struct {
	Store     Store
	Provider  embedding.Provider
	Matcher   *facematch.Matcher
	Metrics   *metrics.Registry
	Publisher notify.Publisher
}

// Enroll detects faces in img and appends the first one under key.
// An image without faces fails with embedding.ErrNoFaceDetected and leaves the
// store unchanged. When several faces are found the first in provider order
// is used.
func (e *Enroller) Enroll(ctx context.Context, key string, img image.Image) (Result, error) {
	ctx, span := tracing.Tracer().Start(ctx, "enrollment.Enroll")
	defer span.End()

	res, err := e.enroll(ctx, key, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.Metrics.ObserveEnrollment(resultLabel(err))
		return Result{}, err
	}
	span.SetAttributes(
		attribute.String("enrollment.identity_key", res.Record.IdentityKey),
		attribute.Int("enrollment.faces", res.FacesDetected),
		attribute.Int("enrollment.records", res.Records),
	)
	e.Metrics.ObserveEnrollment("ok")
	e.Metrics.SetStoreRecords(res.Records)
	e.publish(ctx, res)
	return res, nil
}

func (e *Enroller) enroll(ctx context.Context, key string, img image.Image) (Result, error) {
	normalized, err := database.NormalizeKey(key)
	if err != nil {
		return Result{}, err
	}

	faces, err := e.Provider.Detect(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("detecting faces: %w", err)
	}
	if len(faces) == 0 {
		return Result{}, embedding.ErrNoFaceDetected
	}
	if len(faces) > 1 {
		log.Printf("enrollment: %d faces detected for %q, using the first", len(faces), normalized)
	}
	probe := faces[0].Embedding

	res := Result{FacesDetected: len(faces)}
	e.checkDuplicate(probe, normalized, &res)

	rec, err := e.Store.Append(ctx, normalized, probe)
	if err != nil {
		return Result{}, err
	}
	res.Record = rec
	res.Records = e.Store.Snapshot().Len()

	log.Printf("enrollment: enrolled %q (%d records)", rec.IdentityKey, res.Records)
	return res, nil
}

// checkDuplicate reports when the face already matches another key.
func (e *Enroller) checkDuplicate(probe []float32, key string, res *Result) {
	snap := e.Store.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return
	}
	matcher := e.Matcher
	if matcher == nil {
		matcher = facematch.NewMatcher(0, "")
	}
	m, err := matcher.MatchSnapshot(probe, snap)
	if err != nil {
		// Append reports the dimension mismatch.
		return
	}
	if m.Accepted && m.IdentityKey != key {
		res.PossibleDuplicateOf = m.IdentityKey
		res.DuplicateDistance = m.Distance
		log.Printf("enrollment: face for %q already matches %q (distance %.3f)", key, m.IdentityKey, m.Distance)
	}
}

func (e *Enroller) publish(ctx context.Context, res Result) {
	if e.Publisher == nil {
		return
	}
	ev := notify.EnrollmentEvent{
		IdentityKey:         res.Record.IdentityKey,
		Records:             res.Records,
		FacesDetected:       res.FacesDetected,
		PossibleDuplicateOf: res.PossibleDuplicateOf,
		Time:                time.Now().UTC(),
	}
	if err := e.Publisher.PublishEnrollment(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("enrollment: publishing event: %v", err)
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, embedding.ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, database.ErrInvalidIdentityKey):
		return "invalid_key"
	case errors.Is(err, database.ErrDimensionMismatch):
		return "dimension_mismatch"
	case errors.Is(err, database.ErrPersistenceWrite):
		return "persistence_error"
	default:
		return "error"
	}
}
