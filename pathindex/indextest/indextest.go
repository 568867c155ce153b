package indextest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nuln/userstore"
)

// IndexTestSuite runs a set of conformance tests against a PathIndex
// implementation. Call this in your driver tests:
//
//	func TestMyIndex(t *testing.T) {
//	    indextest.IndexTestSuite(t, myindex.New())
//	}
func IndexTestSuite(t *testing.T, index userstore.PathIndex) {
	t.Helper()
	ctx := context.Background()

	t.Run("Put_Get_Delete", func(t *testing.T) {
		path := "/data/alice/results/out.txt"
		uri := "airavata-dp://put-get"

		if err := index.Put(ctx, "alice", path, uri); err != nil {
			t.Fatalf("Put: %v", err)
		}
		got, err := index.Get(ctx, "alice", path)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != uri {
			t.Errorf("Get = %q, want %q", got, uri)
		}

		if err := index.Delete(ctx, "alice", path); err != nil {
			t.Fatalf("Delete: %v", err)
		}
		if _, err := index.Get(ctx, "alice", path); !errors.Is(err, userstore.ErrNotFound) {
			t.Errorf("Get after Delete: err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Get_Missing", func(t *testing.T) {
		_, err := index.Get(ctx, "alice", "/data/alice/never-indexed")
		if !errors.Is(err, userstore.ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("Delete_Missing", func(t *testing.T) {
		if err := index.Delete(ctx, "alice", "/data/alice/never-indexed"); err != nil {
			t.Errorf("Delete missing: %v", err)
		}
	})

	t.Run("Put_Replaces", func(t *testing.T) {
		path := "/data/alice/replace.txt"
		_ = index.Put(ctx, "alice", path, "airavata-dp://old")
		_ = index.Put(ctx, "alice", path, "airavata-dp://new")

		got, err := index.Get(ctx, "alice", path)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != "airavata-dp://new" {
			t.Errorf("Get = %q, want %q", got, "airavata-dp://new")
		}
		_ = index.Delete(ctx, "alice", path)
	})

	t.Run("Scoped_By_User", func(t *testing.T) {
		path := "/data/shared/same.txt"
		_ = index.Put(ctx, "alice", path, "airavata-dp://alice")

		if _, err := index.Get(ctx, "bob", path); !errors.Is(err, userstore.ErrNotFound) {
			t.Errorf("bob sees alice's association: err = %v", err)
		}
		_ = index.Put(ctx, "bob", path, "airavata-dp://bob")
		if err := index.Delete(ctx, "bob", path); err != nil {
			t.Fatalf("Delete: %v", err)
		}

		got, err := index.Get(ctx, "alice", path)
		if err != nil || got != "airavata-dp://alice" {
			t.Errorf("alice after bob delete = %q, %v", got, err)
		}
		_ = index.Delete(ctx, "alice", path)
	})

	t.Run("Concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				path := fmt.Sprintf("/data/alice/concurrent/%d", i)
				uri := fmt.Sprintf("airavata-dp://%d", i)
				if err := index.Put(ctx, "alice", path, uri); err != nil {
					t.Errorf("Put %d: %v", i, err)
					return
				}
				if got, err := index.Get(ctx, "alice", path); err != nil || got != uri {
					t.Errorf("Get %d = %q, %v", i, got, err)
				}
				_ = index.Delete(ctx, "alice", path)
			}(i)
		}
		wg.Wait()
	})
}
