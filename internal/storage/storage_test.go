package storage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/s5bridge/s5bridge/internal/ratelimit"
	"github.com/s5bridge/s5bridge/internal/storage/storagetest"
)

func newTestClient(bucket *storagetest.Bucket) *Client {
	return New(bucket, "data", nil)
}

func fill(bucket *storagetest.Bucket, prefix string, n int, size int64) {
	for i := 0; i < n; i++ {
		bucket.Put(fmt.Sprintf("%s%05d.bin", prefix, i), size)
	}
}

func TestListPagesAcrossPages(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	fill(bucket, "runs/", 2500, 2)
	client := newTestClient(bucket)

	pages := 0
	var objects, bytes int64
	err := client.ListPages(context.Background(), "runs/", "", func(p *Page) error {
		pages++
		for _, obj := range p.Objects {
			objects++
			bytes += obj.Size
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ListPages failed: %v", err)
	}
	if pages != 3 {
		t.Errorf("Expected 3 pages, got %d", pages)
	}
	if objects != 2500 {
		t.Errorf("Expected 2500 objects, got %d", objects)
	}
	if bytes != 5000 {
		t.Errorf("Expected 5000 bytes, got %d", bytes)
	}
}

func TestListPagesStopsOnCallbackError(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	fill(bucket, "runs/", 2500, 1)
	client := newTestClient(bucket)

	stop := errors.New("stop")
	pages := 0
	err := client.ListPages(context.Background(), "runs/", "", func(p *Page) error {
		pages++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Expected callback error, got %v", err)
	}
	if pages != 1 {
		t.Errorf("Expected 1 page before stopping, got %d", pages)
	}
}

func TestListPageDelimiter(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	for _, k := range []string{"a/1.txt", "a/b/2.txt", "a/b/x/3.txt", "a/c/4.txt", "a/5.txt", "z.txt"} {
		bucket.Put(k, 10)
	}
	client := newTestClient(bucket)

	page, err := client.ListPage(context.Background(), "a/", "/", "", 0)
	if err != nil {
		t.Fatalf("ListPage failed: %v", err)
	}

	if diff := cmp.Diff([]string{"a/b/", "a/c/"}, page.Prefixes); diff != "" {
		t.Errorf("Prefixes mismatch (-want +got):\n%s", diff)
	}
	want := []Object{{Key: "a/1.txt", Size: 10}, {Key: "a/5.txt", Size: 10}}
	if diff := cmp.Diff(want, page.Objects); diff != "" {
		t.Errorf("Objects mismatch (-want +got):\n%s", diff)
	}
	if page.Truncated {
		t.Error("Expected a single untruncated page")
	}
	if page.KeyCount != 4 {
		t.Errorf("Expected KeyCount=4, got %d", page.KeyCount)
	}
}

func TestDeletePrefixBatches(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	fill(bucket, "old/", 2500, 1)
	bucket.Put("keep/file.txt", 1)
	client := newTestClient(bucket)

	deleted, err := client.DeletePrefix(context.Background(), "old/")
	if err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}
	if deleted != 2500 {
		t.Errorf("Expected 2500 deleted, got %d", deleted)
	}
	if diff := cmp.Diff([]int{1000, 1000, 500}, bucket.DeleteBatches); diff != "" {
		t.Errorf("Batch sizes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"keep/file.txt"}, bucket.Keys()); diff != "" {
		t.Errorf("Remaining keys mismatch (-want +got):\n%s", diff)
	}
}

func TestDeletePrefixEmptyIsNoop(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	bucket.Put("other/file.txt", 1)
	client := newTestClient(bucket)

	deleted, err := client.DeletePrefix(context.Background(), "missing/")
	if err != nil {
		t.Fatalf("Expected no error for empty prefix listing, got %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected 0 deleted, got %d", deleted)
	}
	if bucket.DeleteCalls != 0 {
		t.Errorf("Expected no delete calls, got %d", bucket.DeleteCalls)
	}
	if bucket.ListCalls != 1 {
		t.Errorf("Expected exactly one listing, got %d", bucket.ListCalls)
	}
}

func TestDeletePrefixRejectsEmptyPrefix(t *testing.T) {
	client := newTestClient(storagetest.NewBucket("data"))
	if _, err := client.DeletePrefix(context.Background(), ""); !errors.Is(err, ErrEmptyPrefix) {
		t.Errorf("Expected ErrEmptyPrefix, got %v", err)
	}
}

func TestDeleteObjectsTooManyKeys(t *testing.T) {
	client := newTestClient(storagetest.NewBucket("data"))
	keys := make([]string, 1001)
	for i := range keys {
		keys[i] = fmt.Sprintf("k%d", i)
	}
	if _, err := client.DeleteObjects(context.Background(), keys); err == nil {
		t.Error("Expected error for more than 1000 keys")
	}
}

func TestBucketExists(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	ctx := context.Background()

	ok, err := New(bucket, "data", nil).BucketExists(ctx)
	if err != nil || !ok {
		t.Errorf("Expected bucket to exist, got %v, %v", ok, err)
	}

	ok, err = New(bucket, "other", nil).BucketExists(ctx)
	if err != nil || ok {
		t.Errorf("Expected other bucket to be missing, got %v, %v", ok, err)
	}

	bucket.DenyListBuckets = true
	ok, err = New(bucket, "data", nil).BucketExists(ctx)
	if err != nil || !ok {
		t.Errorf("Expected HeadBucket fallback to find bucket, got %v, %v", ok, err)
	}
	ok, err = New(bucket, "other", nil).BucketExists(ctx)
	if err != nil || ok {
		t.Errorf("Expected HeadBucket fallback to miss other bucket, got %v, %v", ok, err)
	}
}

func TestListingErrorWrapsCause(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	cause := errors.New("backend unavailable")
	bucket.ListErr = cause
	client := newTestClient(bucket)

	_, err := client.ListPage(context.Background(), "x/", "", "", 0)
	if !IsListingError(err) {
		t.Fatalf("Expected ListingError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Expected error to wrap cause, got %v", err)
	}
}

func TestExists(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	bucket.Put("results/run1/out.csv", 5)
	client := newTestClient(bucket)
	ctx := context.Background()

	ok, err := client.Exists(ctx, "results/")
	if err != nil || !ok {
		t.Errorf("Expected results/ to exist, got %v, %v", ok, err)
	}
	ok, err = client.Exists(ctx, "nothing/")
	if err != nil || ok {
		t.Errorf("Expected nothing/ to be absent, got %v, %v", ok, err)
	}
}

func TestLimiterGatesRequests(t *testing.T) {
	bucket := storagetest.NewBucket("data")
	bucket.Put("a", 1)
	// One token, refilled far too slowly for the second request.
	client := newTestClient(bucket).WithLimiter(ratelimit.NewRateLimiter(0.001, 1, nil))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := client.ListPage(ctx, "", "", "", 0); err != nil {
		t.Fatalf("first ListPage failed: %v", err)
	}
	_, err := client.ListPage(ctx, "", "", "", 0)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected the limiter to hold the request until the deadline, got %v", err)
	}
	if bucket.ListCalls != 1 {
		t.Errorf("Expected 1 request to reach the bucket, got %d", bucket.ListCalls)
	}
}
