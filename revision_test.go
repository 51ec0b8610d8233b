package revdoc

import (
	"errors"
	"testing"

	"github.com/jpl-au/revdoc/object"
)

// threeRevisions returns a document with four revisions on top of the
// three base objects. Object 2 holds the original dict in revision 0 and
// Int(r) in revisions r = 1, 2; revision 3 adds object 4.
func threeRevisions(t *testing.T) (*Document, string) {
	t.Helper()
	path := writeDoc(t, threeObjects()...)
	d := openTestDoc(t, path, Config{})
	for _, v := range []object.Int{1, 2} {
		if err := d.Set(id(2, 0), v, false); err != nil {
			t.Fatal(err)
		}
		if _, err := d.Save(SaveRevision); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := d.Add(object.Name("Late")); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Save(SaveRevision); err != nil {
		t.Fatal(err)
	}
	if d.Revisions() != 4 {
		t.Fatalf("Revisions = %d, want 4", d.Revisions())
	}
	return d, path
}

func TestChangeRevision(t *testing.T) {
	d, _ := threeRevisions(t)

	tests := []struct {
		rev   int
		want  string
		count int
	}{
		{0, object.Format(threeObjects()[1]), 3},
		{1, "1", 3},
		{2, "2", 3},
		{3, "2", 4},
	}
	for _, tt := range tests {
		if err := d.ChangeRevision(tt.rev); err != nil {
			t.Fatalf("ChangeRevision(%d): %v", tt.rev, err)
		}
		if d.Active() != tt.rev {
			t.Errorf("Active = %d, want %d", d.Active(), tt.rev)
		}
		if got := object.Format(mustGet(t, d, id(2, 0))); got != tt.want {
			t.Errorf("revision %d: Get(2 0) = %s, want %s", tt.rev, got, tt.want)
		}
		if d.Count() != tt.count {
			t.Errorf("revision %d: Count = %d, want %d", tt.rev, d.Count(), tt.count)
		}
	}
	if d.Revisions() != 4 {
		t.Errorf("Revisions = %d, want 4", d.Revisions())
	}
}

func TestChangeRevisionRange(t *testing.T) {
	d, _ := threeRevisions(t)

	for _, k := range []int{-1, 4, 100} {
		if err := d.ChangeRevision(k); !errors.Is(err, ErrRevisionRange) {
			t.Errorf("ChangeRevision(%d) = %v, want ErrRevisionRange", k, err)
		}
	}
	if d.Active() != 3 {
		t.Errorf("failed ChangeRevision moved Active to %d", d.Active())
	}
}

func TestStaleRevisionRejectsMutation(t *testing.T) {
	d, _ := threeRevisions(t)
	if err := d.ChangeRevision(1); err != nil {
		t.Fatal(err)
	}
	if d.State() != ReadOnly {
		t.Errorf("State = %s, want read-only", d.State())
	}

	checks := map[string]error{
		"Set":    d.Set(id(2, 0), object.Int(9), false),
		"Delete": d.Delete(id(1, 0)),
	}
	_, checks["Reserve"] = d.Reserve()
	_, checks["Add"] = d.Add(object.Int(1))
	_, checks["Save"] = d.Save(SaveRevision)
	for op, err := range checks {
		if !errors.Is(err, ErrStaleRevision) {
			t.Errorf("%s on old revision: %v, want ErrStaleRevision", op, err)
		}
	}
	if d.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", d.Pending())
	}
}

func TestPendingSurvivesRevisionSwitch(t *testing.T) {
	d, _ := threeRevisions(t)

	if err := d.Set(id(2, 0), object.Int(99), false); err != nil {
		t.Fatal(err)
	}
	before := make(map[object.ID]string)
	for _, oid := range d.IDs() {
		before[oid] = object.Format(mustGet(t, d, oid))
	}

	if err := d.ChangeRevision(0); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, d, id(2, 0)); object.KindOf(got) != object.KindDict {
		t.Errorf("pending edit visible at revision 0: %s", object.Format(got))
	}
	if d.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", d.Pending())
	}

	if err := d.ChangeRevision(3); err != nil {
		t.Fatal(err)
	}
	if d.State() != PendingChanges {
		t.Errorf("State = %s, want pending-changes", d.State())
	}
	if len(d.IDs()) != len(before) {
		t.Fatalf("IDs = %v after switching back, want %d ids", d.IDs(), len(before))
	}
	for oid, want := range before {
		if got := object.Format(mustGet(t, d, oid)); got != want {
			t.Errorf("Get(%s) = %s after switching back, want %s", oid, got, want)
		}
	}
}

func TestHistory(t *testing.T) {
	d, _ := threeRevisions(t)

	h := d.History()
	if len(h) != 4 {
		t.Fatalf("History has %d entries, want 4", len(h))
	}
	for i, r := range h {
		if r.Index != i {
			t.Errorf("History[%d].Index = %d", i, r.Index)
		}
		if r.End <= r.Offset {
			t.Errorf("History[%d] spans [%d, %d)", i, r.Offset, r.End)
		}
		if i > 0 && r.Offset != h[i-1].End {
			t.Errorf("History[%d] starts at %d, previous ends at %d", i, r.Offset, h[i-1].End)
		}
		if r.Timestamp.IsZero() {
			t.Errorf("History[%d] has no timestamp", i)
		}
	}
	if h[0].Objects != 3 || h[1].Objects != 1 {
		t.Errorf("Objects = %d, %d, want 3, 1", h[0].Objects, h[1].Objects)
	}
}

// Revisions survive reopening the file.
func TestRevisionsPersist(t *testing.T) {
	d, path := threeRevisions(t)
	d.Close()

	d = openTestDoc(t, path, Config{})
	if d.Revisions() != 4 || d.Active() != 3 {
		t.Errorf("Revisions, Active = %d, %d, want 4, 3", d.Revisions(), d.Active())
	}
	if err := d.ChangeRevision(1); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, d, id(2, 0)); got != object.Int(1) {
		t.Errorf("Get(2 0) at revision 1 = %v, want 1", got)
	}
}
