package verification

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/nandhiniannika/online-voting/internal/database"
	"github.com/nandhiniannika/online-voting/internal/embedding"
	"github.com/nandhiniannika/online-voting/internal/facematch"
	"github.com/nandhiniannika/online-voting/internal/frames"
	"github.com/nandhiniannika/online-voting/internal/metrics"
	"github.com/nandhiniannika/online-voting/internal/notify"
	"github.com/nandhiniannika/online-voting/internal/tracing"
)

// Verifier creates sessions and single-image checks sharing one store,
// provider and matcher. Metrics and Publisher are optional.
type Verifier struct {
	Store     Snapshotter
	Provider  embedding.Provider
	Matcher   *facematch.Matcher
	Settings  Settings
	Metrics   *metrics.Registry
	Publisher notify.Publisher
}

// NewSession prepares a session for claimed reading from opener.
func (v *Verifier) NewSession(claimed string, opener frames.Opener, observer Observer) *Session {
	return NewSession(claimed, v.Store, opener, v.Provider, v.Matcher, v.Settings, observer, v.Metrics)
}

// Verify runs a full session and reports the verdict.
func (v *Verifier) Verify(ctx context.Context, claimed string, opener frames.Opener, observer Observer) (Verdict, error) {
	return v.Run(ctx, v.NewSession(claimed, opener, observer))
}

// Run runs a prepared session and reports the verdict.
func (v *Verifier) Run(ctx context.Context, sess *Session) (Verdict, error) {
	verdict, err := sess.Run(ctx)
	if err != nil {
		return Verdict{}, err
	}
	v.report(ctx, ModeSession, verdict)
	return verdict, nil
}

// VerifyImage checks a single image: the first detected face is matched and
// the claim is accepted only when the nearest identity is the claimed key and
// the distance is under the threshold.
func (v *Verifier) VerifyImage(ctx context.Context, claimed string, img image.Image) (Verdict, error) {
	ctx, span := tracing.Tracer().Start(ctx, "verification.VerifyImage")
	defer span.End()

	verdict, err := v.verifyImage(ctx, claimed, img)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Verdict{}, err
	}
	span.SetAttributes(attribute.String("verification.outcome", string(verdict.Outcome)))
	v.report(ctx, ModeImage, verdict)
	return verdict, nil
}

func (v *Verifier) verifyImage(ctx context.Context, claimed string, img image.Image) (Verdict, error) {
	start := time.Now()

	key, err := database.NormalizeKey(claimed)
	if err != nil {
		return Verdict{}, err
	}
	snap := v.Store.Snapshot()
	if snap == nil || snap.Len() == 0 {
		return Verdict{}, facematch.ErrNoEnrolledIdentities
	}

	faces, err := v.Provider.Detect(ctx, img)
	if err != nil {
		return Verdict{}, fmt.Errorf("detecting faces: %w", err)
	}
	if len(faces) == 0 {
		return Verdict{}, embedding.ErrNoFaceDetected
	}

	matcher := v.Matcher
	if matcher == nil {
		matcher = facematch.NewMatcher(0, "")
	}
	res, err := matcher.MatchSnapshot(faces[0].Embedding, snap)
	if err != nil {
		return Verdict{}, err
	}
	v.Metrics.ObserveDistance(res.Distance)

	verdict := Verdict{
		ClaimedIdentity:   key,
		Outcome:           OutcomeRejected,
		ObservedMatches:   []string{},
		ObservationCounts: map[string]int{},
		FramesProcessed:   1,
		FramesWithFaces:   1,
		StopReason:        StopSingleImage,
		Match:             &res,
	}
	if res.Accepted {
		verdict.ObservedMatches = append(verdict.ObservedMatches, res.IdentityKey)
		verdict.ObservationCounts[res.IdentityKey] = 1
		if res.IdentityKey == key {
			verdict.Outcome = OutcomeAccepted
		}
	}
	verdict.Elapsed = time.Since(start)
	return verdict, nil
}

func (v *Verifier) report(ctx context.Context, mode string, verdict Verdict) {
	v.Metrics.ObserveVerification(mode, string(verdict.Outcome), verdict.Elapsed)
	log.Printf("verification: %s claim %q %s (%d frames, %d matches)",
		mode, verdict.ClaimedIdentity, verdict.Outcome, verdict.FramesProcessed, len(verdict.ObservedMatches))

	if v.Publisher == nil {
		return
	}
	ev := notify.VerificationEvent{
		ClaimedIdentity: verdict.ClaimedIdentity,
		Outcome:         string(verdict.Outcome),
		Mode:            mode,
		ObservedMatches: verdict.ObservedMatches,
		ElapsedMs:       verdict.Elapsed.Milliseconds(),
		Time:            time.Now().UTC(),
	}
	if err := v.Publisher.PublishVerification(context.WithoutCancel(ctx), ev); err != nil {
		log.Printf("verification: publishing verdict: %v", err)
	}
}
