package model

import (
	"testing"
)

func TestDeliveryStatusValid(t *testing.T) {
	valid := []DeliveryStatus{DeliveryStatusPending, DeliveryStatusProcessing, DeliveryStatusCompleted, DeliveryStatusFailed}
	for _, s := range valid {
		if !s.Valid() {
			t.Errorf("status %q should be valid", s)
		}
	}
	if DeliveryStatus("retrying").Valid() {
		t.Error("unknown status should be invalid")
	}
}

func TestDeliveryRecordCanRetry(t *testing.T) {
	tests := []struct {
		name       string
		status     DeliveryStatus
		retryCount int
		maxRetries int
		want       bool
	}{
		{"failed under budget", DeliveryStatusFailed, 1, 3, true},
		{"failed at budget", DeliveryStatusFailed, 3, 3, false},
		{"completed never retries", DeliveryStatusCompleted, 0, 3, false},
		{"processing never retries", DeliveryStatusProcessing, 0, 3, false},
		{"pending never retries", DeliveryStatusPending, 0, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &DeliveryRecord{Status: tt.status, RetryCount: tt.retryCount}
			if got := d.CanRetry(tt.maxRetries); got != tt.want {
				t.Errorf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeliveryRecordRetriesExhausted(t *testing.T) {
	d := &DeliveryRecord{Status: DeliveryStatusFailed, RetryCount: 3}
	if !d.RetriesExhausted(3) {
		t.Error("three failures against a budget of three should be exhausted")
	}

	d.RetryCount = 2
	if d.RetriesExhausted(3) {
		t.Error("two failures against a budget of three should not be exhausted")
	}
}

func TestHashPayloadIsStableAndDistinct(t *testing.T) {
	a := HashPayload([]byte(`{"type":"buddy.match.created"}`))
	b := HashPayload([]byte(`{"type":"buddy.match.created"}`))
	c := HashPayload([]byte(`{"type":"buddy.match.ended"}`))

	if a != b {
		t.Error("identical payloads must hash identically")
	}
	if a == c {
		t.Error("different payloads must hash differently")
	}
	if len(a) != 64 {
		t.Errorf("expected hex sha256 digest, got length %d", len(a))
	}
}

func TestParseEventEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		kind    EventKind
	}{
		{"valid envelope", `{"type":"buddy.match.created","data":{"match_id":"m-1"}}`, false, EventKindMatchCreated},
		{"missing type", `{"data":{}}`, true, ""},
		{"blank type", `{"type":"  "}`, true, ""},
		{"not json", `not-json`, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := ParseEventEnvelope([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if env.Type != tt.kind {
				t.Errorf("Type = %q, want %q", env.Type, tt.kind)
			}
		})
	}
}
