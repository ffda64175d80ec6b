package fileid

import (
	"strings"
	"testing"
)

func TestBatchID(t *testing.T) {
	id1 := BatchID("/inbox/calls.csv")
	id2 := BatchID("/inbox/calls.csv")
	if id1 != id2 {
		t.Errorf("same path should give same ID: %q vs %q", id1, id2)
	}
	if !strings.HasPrefix(id1, prefix) || len(id1) != len(prefix)+32 {
		t.Errorf("unexpected ID shape: %q", id1)
	}
	if !IsFileBatch(id1) {
		t.Errorf("IsFileBatch(%q) = false", id1)
	}
	if IsFileBatch("3f2b8c1e-0000-4000-8000-000000000000") {
		t.Error("uuid batch IDs are not file batches")
	}
}

func TestBatchID_differentPaths(t *testing.T) {
	if BatchID("/inbox/a.csv") == BatchID("/inbox/b.csv") {
		t.Error("different paths should give different IDs")
	}
}

func TestBatchID_normalized(t *testing.T) {
	id1 := BatchID("/inbox/calls.csv")
	if id2 := BatchID("/inbox/./calls.csv"); id1 != id2 {
		t.Errorf("paths with . should normalize: %q vs %q", id1, id2)
	}
	if id3 := BatchID("/inbox/sub/../calls.csv"); id1 != id3 {
		t.Errorf("paths with .. should normalize: %q vs %q", id1, id3)
	}
}
