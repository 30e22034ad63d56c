package models

import "testing"

func TestIsEntitled(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due"} {
		s := &Subscription{Status: status}
		if !s.IsEntitled() {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "incomplete", "unpaid", "paused"} {
		s := &Subscription{Status: status}
		if s.IsEntitled() {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
	var nilSub *Subscription
	if nilSub.IsEntitled() {
		t.Fatalf("nil subscription must not be entitled")
	}
}
