package model

import (
	"encoding/json"
	"testing"
)

func TestPoolStatusJSONUsesNames(t *testing.T) {
	data, err := json.Marshal(struct {
		Status PoolStatus `json:"status"`
	}{Status: StatusDepositEnabled})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `{"status":"DEPOSIT_ENABLED"}` {
		t.Fatalf("unexpected json: %s", data)
	}

	var decoded struct {
		Status PoolStatus `json:"status"`
	}
	if err := json.Unmarshal([]byte(`{"status":"ended"}`), &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded.Status != StatusEnded {
		t.Fatalf("status mismatch: %s", decoded.Status)
	}
}

func TestPoolStatusInvalid(t *testing.T) {
	if PoolStatus(5).Valid() {
		t.Fatalf("status 5 should be invalid")
	}
	if _, err := json.Marshal(PoolStatus(9)); err == nil {
		t.Fatalf("expected marshal error for unknown status")
	}
	if _, err := ParseStatus("LIVE"); err == nil {
		t.Fatalf("expected parse error")
	}
	if !StatusDeleted.Terminal() || StatusStarted.Terminal() {
		t.Fatalf("terminal mismatch")
	}
}
