package jobs

import (
	"context"
	"errors"
	"testing"
)

func TestRouter(t *testing.T) {
	var ran JobType
	r := Router{
		JobTypeBackupSnapshot: func(_ context.Context, job *Job) error {
			ran = job.Type
			return nil
		},
	}

	if err := r.Handle(context.Background(), &Job{Type: JobTypeBackupSnapshot}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if ran != JobTypeBackupSnapshot {
		t.Errorf("ran = %q", ran)
	}

	err := r.Handle(context.Background(), &Job{Type: JobTypeSyncNotion})
	if err == nil || !IsPermanent(err) {
		t.Errorf("unrouted job error = %v, want permanent", err)
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad")
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) != nil")
	}
	err := Permanent(base)
	if !errors.Is(err, base) || !IsPermanent(err) || err.Error() != "bad" {
		t.Errorf("Permanent(base) = %v", err)
	}
	if IsPermanent(base) {
		t.Error("plain error reported permanent")
	}
}

func TestJobTypeValid(t *testing.T) {
	for _, typ := range Types {
		if !typ.Valid() {
			t.Errorf("%q not valid", typ)
		}
	}
	if JobType("parse_document").Valid() {
		t.Error("unknown type reported valid")
	}
}
