package storage

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/dvalin-labs/romgraph/internal/rom"
	"github.com/dvalin-labs/romgraph/internal/store"
)

func newTestManager(t *testing.T) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	m, _, err := Open(filepath.Join(dir, "romgraph.db"), filepath.Join(dir, "diffs"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, dir
}

// makeROM builds a minimal NES image: a 16-byte header declaring zero
// PRG/CHR banks followed by a seeded payload.
func makeROM(seed byte, size int) []byte {
	header := make([]byte, 16)
	copy(header, "NES\x1a")
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = seed + byte(i%13)
	}
	return append(header, payload...)
}

func mustAdd(t *testing.T, m *Manager, data []byte, name string) *store.Node {
	t.Helper()
	res, err := m.Add(Input{Data: data, Filename: name})
	if err != nil {
		t.Fatalf("Add(%s): %v", name, err)
	}
	return res.Node
}

func TestAddIdempotent(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 2048)

	first, err := m.Add(Input{Data: romA, Filename: "a.nes", Meta: store.Metadata{Title: "First"}})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if first.Existed {
		t.Error("first add reported Existed")
	}

	second, err := m.Add(Input{Data: romA, Filename: "copy.nes"})
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if !second.Existed {
		t.Error("second add did not report Existed")
	}
	if second.Node.ID != first.Node.ID {
		t.Errorf("second add returned node %d, want %d", second.Node.ID, first.Node.ID)
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Nodes != 1 {
		t.Errorf("node count = %d, want 1", stats.Nodes)
	}
}

func TestLinkAndBuild(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 4096)
	romB := makeROM(2, 4096)

	res, err := m.Link(
		Input{Data: romA, Filename: "a.nes", Meta: store.Metadata{Title: "A"}},
		Input{Data: romB, Filename: "b.nes", Meta: store.Metadata{Title: "B"}},
	)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if res.Forward.SourceID != res.Source.Node.ID || res.Forward.TargetID != res.Target.Node.ID {
		t.Errorf("forward edge endpoints = %d->%d", res.Forward.SourceID, res.Forward.TargetID)
	}
	if res.Reverse.SourceID != res.Target.Node.ID {
		t.Errorf("reverse edge source = %d, want %d", res.Reverse.SourceID, res.Target.Node.ID)
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Nodes != 2 || stats.Edges != 2 {
		t.Errorf("stats = %d nodes %d edges, want 2/2", stats.Nodes, stats.Edges)
	}

	// Forward build reproduces B byte for byte, header included.
	built, target, err := m.Build(romA, res.Target.Node.Hash)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if target.ID != res.Target.Node.ID {
		t.Errorf("Build resolved node %d, want %d", target.ID, res.Target.Node.ID)
	}
	if !bytes.Equal(built, romB) {
		t.Error("built bytes differ from the original file")
	}

	// Reverse direction works through the mirrored edge.
	builtA, _, err := m.Build(romB, res.Source.Node.Hash)
	if err != nil {
		t.Fatalf("reverse Build: %v", err)
	}
	if !bytes.Equal(builtA, romA) {
		t.Error("reverse build bytes differ from the original file")
	}
}

func TestBuildMultiHop(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 4096)
	romB := makeROM(2, 4096)
	romC := makeROM(3, 4096)

	if _, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romB, Filename: "b.nes"}); err != nil {
		t.Fatalf("Link a-b: %v", err)
	}
	if _, err := m.Link(Input{Data: romB, Filename: "b.nes"}, Input{Data: romC, Filename: "c.nes"}); err != nil {
		t.Fatalf("Link b-c: %v", err)
	}

	cHash := rom.Fingerprint(romC[16:])
	built, _, err := m.Build(romA, cHash)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !bytes.Equal(built, romC) {
		t.Error("two-hop build bytes differ from the original file")
	}
}

func TestBuildUnreachable(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 2048)
	romB := makeROM(2, 2048)
	mustAdd(t, m, romA, "a.nes")
	mustAdd(t, m, romB, "b.nes")

	bHash := rom.Fingerprint(romB[16:])
	built, _, err := m.Build(romA, bHash)
	var unreachable *UnreachableError
	if !errors.As(err, &unreachable) {
		t.Fatalf("Build = %v, want UnreachableError", err)
	}
	if built != nil {
		t.Error("unreachable build returned bytes")
	}
}

func TestBuildCorruptArtifact(t *testing.T) {
	m, dir := newTestManager(t)
	romA := makeROM(1, 2048)
	romB := makeROM(2, 2048)

	res, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romB, Filename: "b.nes"})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	path := filepath.Join(dir, "diffs", res.Forward.DiffPath)
	if err := os.WriteFile(path, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("corrupting artifact: %v", err)
	}

	built, _, err := m.Build(romA, res.Target.Node.Hash)
	var integrity *IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Build = %v, want IntegrityError", err)
	}
	if built != nil {
		t.Error("corrupt build returned bytes")
	}
}

func TestLinkIdenticalPayloads(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 1024)
	if _, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romA, Filename: "a2.nes"}); err == nil {
		t.Error("Link accepted identical payloads")
	}
}

func TestRemoveCascades(t *testing.T) {
	m, dir := newTestManager(t)
	romA := makeROM(1, 2048)
	romB := makeROM(2, 2048)

	res, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romB, Filename: "b.nes"})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	if _, err := m.Remove(res.Source.Node.Hash); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	stats, err := m.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Nodes != 1 || stats.Edges != 0 {
		t.Errorf("stats after remove = %d nodes %d edges, want 1/0", stats.Nodes, stats.Edges)
	}

	_, neighbors, err := m.Neighbors(res.Target.Node.Hash)
	if err != nil {
		t.Fatalf("Neighbors: %v", err)
	}
	if len(neighbors) != 0 {
		t.Errorf("survivor has %d neighbors, want 0", len(neighbors))
	}

	for _, name := range []string{res.Forward.DiffPath, res.Reverse.DiffPath} {
		if _, err := os.Stat(filepath.Join(dir, "diffs", name)); !os.IsNotExist(err) {
			t.Errorf("artifact %s survived the cascade", name)
		}
	}
}

func TestUnlink(t *testing.T) {
	m, dir := newTestManager(t)
	romA := makeROM(1, 2048)
	romB := makeROM(2, 2048)

	res, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romB, Filename: "b.nes"})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := m.Unlink(res.Source.Node.Hash, res.Target.Node.Hash); err != nil {
		t.Fatalf("Unlink: %v", err)
	}

	stats, _ := m.Stats()
	if stats.Nodes != 2 || stats.Edges != 0 {
		t.Errorf("stats after unlink = %d nodes %d edges, want 2/0", stats.Nodes, stats.Edges)
	}
	if _, err := os.Stat(filepath.Join(dir, "diffs", res.Forward.DiffPath)); !os.IsNotExist(err) {
		t.Error("forward artifact survived unlink")
	}

	// Unlinking again reports the missing edge pair.
	if err := m.Unlink(res.Source.Node.Hash, res.Target.Node.Hash); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second Unlink = %v, want ErrNotFound", err)
	}
}

func TestEditMetadata(t *testing.T) {
	m, _ := newTestManager(t)
	node := mustAdd(t, m, makeROM(1, 1024), "a.nes")

	updated, err := m.EditMetadata(node.Hash, store.Metadata{
		Title:   "Renamed",
		Version: "1.1",
		Tags:    []string{"beta"},
	})
	if err != nil {
		t.Fatalf("EditMetadata: %v", err)
	}
	if updated.Title != "Renamed" || updated.Version != "1.1" {
		t.Errorf("updated = %+v", updated.Metadata)
	}
	if updated.Hash != node.Hash {
		t.Error("content hash changed on metadata edit")
	}
}

func TestResolve(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 1024)
	node := mustAdd(t, m, romA, "a.nes")

	// Full hash.
	got, err := m.Resolve(node.Hash)
	if err != nil || got.ID != node.ID {
		t.Errorf("Resolve(full hash) = %v, %v", got, err)
	}

	// Prefix.
	got, err = m.Resolve(node.Hash[:10])
	if err != nil || got.ID != node.ID {
		t.Errorf("Resolve(prefix) = %v, %v", got, err)
	}

	// File path.
	path := filepath.Join(t.TempDir(), "a.nes")
	if err := os.WriteFile(path, romA, 0o644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	got, err = m.Resolve(path)
	if err != nil || got.ID != node.ID {
		t.Errorf("Resolve(path) = %v, %v", got, err)
	}

	// Unknown reference.
	if _, err := m.Resolve("no-such-thing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Resolve(junk) = %v, want ErrNotFound", err)
	}
}

func TestLastAdded(t *testing.T) {
	m, _ := newTestManager(t)
	mustAdd(t, m, makeROM(1, 1024), "a.nes")
	b := mustAdd(t, m, makeROM(2, 1024), "b.nes")

	last, ok := m.LastAdded()
	if !ok || last.ID != b.ID {
		t.Fatalf("LastAdded = %v, %v, want node %d", last, ok, b.ID)
	}

	// Removing an unrelated node keeps the reference.
	if _, err := m.Remove(makeROMHash(1)); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if last, ok := m.LastAdded(); !ok || last.ID != b.ID {
		t.Error("LastAdded lost after removing an unrelated node")
	}

	// Removing the referenced node clears it.
	if _, err := m.Remove(b.Hash); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := m.LastAdded(); ok {
		t.Error("LastAdded survived removal of its node")
	}
}

func makeROMHash(seed byte) string {
	data := makeROM(seed, 1024)
	return rom.Fingerprint(data[16:])
}

func TestGraphReloadsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "romgraph.db")
	diffsDir := filepath.Join(dir, "diffs")

	romA := makeROM(1, 2048)
	romB := makeROM(2, 2048)

	m, _, err := Open(dbPath, diffsDir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	res, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romB, Filename: "b.nes"})
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m2, _, err := Open(dbPath, diffsDir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()

	built, _, err := m2.Build(romA, res.Target.Node.Hash)
	if err != nil {
		t.Fatalf("Build after reopen: %v", err)
	}
	if !bytes.Equal(built, romB) {
		t.Error("build after reopen differs from the original file")
	}
}

func TestComponentSize(t *testing.T) {
	m, _ := newTestManager(t)
	romA := makeROM(1, 2048)
	romB := makeROM(2, 2048)
	romC := makeROM(3, 2048)

	if _, err := m.Link(Input{Data: romA, Filename: "a.nes"}, Input{Data: romB, Filename: "b.nes"}); err != nil {
		t.Fatalf("Link: %v", err)
	}
	c := mustAdd(t, m, romC, "c.nes")

	aHash := rom.Fingerprint(romA[16:])
	size, err := m.ComponentSize(aHash)
	if err != nil {
		t.Fatalf("ComponentSize: %v", err)
	}
	if size != 2 {
		t.Errorf("ComponentSize(a) = %d, want 2", size)
	}
	if size, _ := m.ComponentSize(c.Hash); size != 1 {
		t.Errorf("ComponentSize(c) = %d, want 1", size)
	}
}
