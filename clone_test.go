package revdoc

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/jpl-au/revdoc/object"
)

func TestCloneConsolidates(t *testing.T) {
	d, _ := threeRevisions(t)
	if err := d.ChangeRevision(2); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "clone.jsonl")

	if err := d.Clone(target, nil); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	c := openTestDoc(t, target, Config{})
	if c.Revisions() != 1 {
		t.Errorf("clone Revisions = %d, want 1", c.Revisions())
	}
	if !slices.Equal(c.IDs(), d.IDs()) {
		t.Fatalf("clone IDs = %v, want %v", c.IDs(), d.IDs())
	}
	for _, oid := range d.IDs() {
		want := object.Format(mustGet(t, d, oid))
		if got := object.Format(mustGet(t, c, oid)); got != want {
			t.Errorf("clone Get(%s) = %s, want %s", oid, got, want)
		}
	}
	if _, err := os.Stat(target + ".tmp"); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary file left behind: %v", err)
	}

	// New objects in the clone never collide with source numbers.
	rid, err := c.Reserve()
	if err != nil {
		t.Fatal(err)
	}
	if rid.Num < 4 {
		t.Errorf("clone Reserve = %s, want number at least 4", rid)
	}
}

func TestCloneKeepHistory(t *testing.T) {
	d, _ := threeRevisions(t)
	if err := d.ChangeRevision(1); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "clone.jsonl")

	if err := d.Clone(target, &CloneOptions{KeepHistory: true}); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	c := openTestDoc(t, target, Config{})
	if c.Revisions() != d.Active()+1 {
		t.Errorf("clone Revisions = %d, want %d", c.Revisions(), d.Active()+1)
	}
	if got := mustGet(t, c, id(2, 0)); got != object.Int(1) {
		t.Errorf("clone Get(2 0) = %v, want 1", got)
	}
	if err := c.ChangeRevision(0); err != nil {
		t.Fatal(err)
	}
	if got := mustGet(t, c, id(2, 0)); object.KindOf(got) != object.KindDict {
		t.Errorf("clone base Get(2 0) = %s, want the original dict", object.Format(got))
	}
}

func TestCloneExcludesPending(t *testing.T) {
	d := openTestDoc(t, writeDoc(t, threeObjects()...), Config{})
	if err := d.Set(id(2, 0), object.Int(5), false); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Add(object.Int(6)); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "clone.jsonl")
	if err := d.Clone(target, nil); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	c := openTestDoc(t, target, Config{})
	if c.Count() != 3 {
		t.Errorf("clone Count = %d, want 3", c.Count())
	}
	if got := mustGet(t, c, id(2, 0)); object.KindOf(got) != object.KindDict {
		t.Errorf("clone Get(2 0) = %s, want the committed dict", object.Format(got))
	}
	if d.Pending() != 2 {
		t.Errorf("source Pending = %d, want 2", d.Pending())
	}
}

func TestCloneTargetExists(t *testing.T) {
	d := openTestDoc(t, writeDoc(t, threeObjects()...), Config{})
	target := filepath.Join(t.TempDir(), "taken.jsonl")
	if err := os.WriteFile(target, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := d.Clone(target, nil); !errors.Is(err, ErrExists) {
		t.Errorf("Clone error = %v, want ErrExists", err)
	}
	data, _ := os.ReadFile(target)
	if string(data) != "keep me" {
		t.Errorf("existing target overwritten: %q", data)
	}
}

func TestCloneDeletedObjects(t *testing.T) {
	d := openTestDoc(t, writeDoc(t, threeObjects()...), Config{})
	if err := d.Delete(id(3, 0)); err != nil {
		t.Fatal(err)
	}
	if _, err := d.Save(SaveRevision); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(t.TempDir(), "clone.jsonl")
	if err := d.Clone(target, nil); err != nil {
		t.Fatalf("Clone: %v", err)
	}

	c := openTestDoc(t, target, Config{})
	if want := []object.ID{id(1, 0), id(2, 0)}; !slices.Equal(c.IDs(), want) {
		t.Errorf("clone IDs = %v, want %v", c.IDs(), want)
	}
}
