package docstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lockbook/lockbook-core/pkg/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "docstore-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}

	s, err := New(DefaultConfig(tmpDir))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("New failed: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
		os.RemoveAll(tmpDir)
	})

	return s
}

func TestStoreInsertAndGet(t *testing.T) {
	s := newTestStore(t)
	id := model.NewFileId()
	hmac := model.DocHmac{1, 2, 3}
	data := []byte("encrypted document bytes")

	if err := s.Insert(id, hmac, data); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, ok, err := s.Get(id, hmac)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("Get reported not found for inserted document")
	}
	if string(got) != string(data) {
		t.Errorf("Get returned %q, want %q", got, data)
	}

	path := filepath.Join(s.basePath, fileName(id, hmac))
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("document file not found at %s", path)
	}
}

func TestStoreGetMissingIsAbsentNotError(t *testing.T) {
	s := newTestStore(t)
	_, ok, err := s.Get(model.NewFileId(), model.DocHmac{})
	if err != nil {
		t.Fatalf("Get on missing document returned error: %v", err)
	}
	if ok {
		t.Fatal("Get reported found for a document never inserted")
	}
}

func TestStoreDeleteIgnoresMissing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(model.NewFileId(), model.DocHmac{}); err != nil {
		t.Fatalf("Delete on missing document returned error: %v", err)
	}
}

func TestStoreDeleteRemovesDocument(t *testing.T) {
	s := newTestStore(t)
	id := model.NewFileId()
	hmac := model.DocHmac{9}
	if err := s.Insert(id, hmac, []byte("x")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := s.Delete(id, hmac); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	_, ok, err := s.Get(id, hmac)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("document still present after Delete")
	}
}

func TestStoreRetainDeletesUnlisted(t *testing.T) {
	s := newTestStore(t)
	keepId, keepHmac := model.NewFileId(), model.DocHmac{1}
	dropId, dropHmac := model.NewFileId(), model.DocHmac{2}

	if err := s.Insert(keepId, keepHmac, []byte("keep")); err != nil {
		t.Fatalf("Insert keep failed: %v", err)
	}
	if err := s.Insert(dropId, dropHmac, []byte("drop")); err != nil {
		t.Fatalf("Insert drop failed: %v", err)
	}

	if err := s.Retain([]Key{{Id: keepId, Hmac: keepHmac}}); err != nil {
		t.Fatalf("Retain failed: %v", err)
	}

	if _, ok, _ := s.Get(keepId, keepHmac); !ok {
		t.Error("Retain deleted a document that should have been kept")
	}
	if _, ok, _ := s.Get(dropId, dropHmac); ok {
		t.Error("Retain did not delete an unlisted document")
	}
}

func TestStoreOperationsFailAfterClose(t *testing.T) {
	s := newTestStore(t)
	s.Close()

	if err := s.Insert(model.NewFileId(), model.DocHmac{}, []byte("x")); err != ErrClosed {
		t.Errorf("Insert after close = %v, want ErrClosed", err)
	}
	if _, _, err := s.Get(model.NewFileId(), model.DocHmac{}); err != ErrClosed {
		t.Errorf("Get after close = %v, want ErrClosed", err)
	}
}
