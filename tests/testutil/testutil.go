// Package testutil holds fixtures shared by the integration tests:
// deterministic IDs, stub domain events, and polling assertions for
// background loops.
package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// fixtureNamespace seeds NewTestUUID so IDs are stable across runs.
var fixtureNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a deterministic UUID from seed. The same seed
// always yields the same ID, so fixtures can be asserted by value.
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(fixtureNamespace, []byte(seed))
}

// TestProductID is the product ID used by fixtures that only need one
// product.
func TestProductID() uuid.UUID {
	return NewTestUUID("test-product")
}

// TestListingID is the listing ID counterpart of TestProductID.
func TestListingID() uuid.UUID {
	return NewTestUUID("test-listing")
}

// AssertEventually polls condition until it returns true or the timeout
// elapses, then fails the test. Use it for scheduler loops and other
// work that completes on a goroutine.
func AssertEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}

	t.Fatalf("condition not met within %v: %v", timeout, msgAndArgs)
}
