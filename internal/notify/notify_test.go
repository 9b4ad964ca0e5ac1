package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nandhiniannika/online-voting/internal/config"
)

func TestNew_NoBrokerIsNoop(t *testing.T) {
	p, err := New(config.MQTTConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(Noop); !ok {
		t.Fatalf("expected Noop, got %T", p)
	}
	ctx := context.Background()
	if err := p.PublishEnrollment(ctx, EnrollmentEvent{IdentityKey: "alice"}); err != nil {
		t.Errorf("PublishEnrollment: %v", err)
	}
	if err := p.PublishVerification(ctx, VerificationEvent{ClaimedIdentity: "alice"}); err != nil {
		t.Errorf("PublishVerification: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewMQTTPublisher_UnreachableBroker(t *testing.T) {
	_, err := NewMQTTPublisher(config.MQTTConfig{Broker: "tcp://127.0.0.1:1"})
	if err == nil {
		t.Fatal("expected connect error")
	}
}

func TestVerificationEvent_JSON(t *testing.T) {
	ev := VerificationEvent{
		ClaimedIdentity: "alice",
		Outcome:         "accepted",
		Mode:            "session",
		ObservedMatches: []string{"alice", "bob"},
		ElapsedMs:       5000,
		Time:            time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["claimed_identity"] != "alice" || got["outcome"] != "accepted" {
		t.Errorf("unexpected payload: %s", data)
	}
	if _, ok := got["possible_duplicate_of"]; ok {
		t.Error("verification event should not carry enrollment fields")
	}
}

func TestEnrollmentEvent_OmitsEmptyDuplicate(t *testing.T) {
	data, _ := json.Marshal(EnrollmentEvent{IdentityKey: "alice", Records: 1})
	var got map[string]any
	_ = json.Unmarshal(data, &got)
	if _, ok := got["possible_duplicate_of"]; ok {
		t.Errorf("expected possible_duplicate_of omitted: %s", data)
	}
}
