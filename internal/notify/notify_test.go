package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubChannel struct {
	name  string
	err   error
	calls int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, msg Message) error {
	s.calls++
	return s.err
}

func TestSendAllContinuesPastFailure(t *testing.T) {
	failing := &stubChannel{name: "webhook", err: errors.New("boom")}
	ok := &stubChannel{name: "email"}

	results := SendAll(context.Background(), []Channel{failing, ok}, testMessage(), testLogger())

	if len(results) != 2 {
		t.Fatalf("results: got %d", len(results))
	}
	if ok.calls != 1 {
		t.Error("later channel not attempted after failure")
	}
	if results[0].Err == nil || results[1].Err != nil {
		t.Errorf("unexpected outcomes: %+v", results)
	}

	err := CombinedErr(results)
	if err == nil {
		t.Fatal("CombinedErr should surface the failure")
	}
	if !strings.Contains(err.Error(), "webhook") {
		t.Errorf("combined error should name the channel: %v", err)
	}
}

func TestCombinedErrAllHealthy(t *testing.T) {
	results := []Result{{Channel: "email"}, {Channel: "wiki"}}
	if err := CombinedErr(results); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
