package marketplace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslist/backend/internal/domain/listing"
)

func TestCraigslistConfigValidate(t *testing.T) {
	config := &CraigslistConfig{}
	require.NoError(t, config.Validate())

	assert.Equal(t, defaultCraigslistSite, config.Site)
	assert.Equal(t, "fso", config.Category)
	assert.Equal(t, defaultCraigslistTimeout, config.DefaultTimeout)

	custom := &CraigslistConfig{Site: "newyork", Category: "ele", DefaultTimeout: time.Minute}
	require.NoError(t, custom.Validate())
	assert.Equal(t, "newyork", custom.Site)
	assert.Equal(t, "ele", custom.Category)
}

func TestCraigslistCapabilities(t *testing.T) {
	adapter, err := NewCraigslistAdapter(&CraigslistConfig{}, NewStaticCredentialSource())
	require.NoError(t, err)
	defer adapter.Close()

	caps := adapter.Capabilities()
	assert.True(t, caps.Supports(listing.CapabilityCreate))
	assert.True(t, caps.Supports(listing.CapabilityEnd))
	assert.False(t, caps.Supports(listing.CapabilityUpdate))
	assert.False(t, caps.Supports(listing.CapabilityGet))
}

func TestCraigslistUpdateUnsupported(t *testing.T) {
	adapter, err := NewCraigslistAdapter(&CraigslistConfig{}, NewStaticCredentialSource())
	require.NoError(t, err)
	defer adapter.Close()

	_, err = adapter.UpdateListing(context.Background(), "7700000001", listing.ListingUpdate{})

	var adapterErr *listing.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, listing.AdapterErrCodeUnsupported, adapterErr.Code)
	assert.True(t, adapterErr.Permanent)
}

func TestCraigslistGetReportsUnknown(t *testing.T) {
	adapter, err := NewCraigslistAdapter(&CraigslistConfig{}, NewStaticCredentialSource())
	require.NoError(t, err)
	defer adapter.Close()

	remote, err := adapter.GetListing(context.Background(), "7700000001")
	require.NoError(t, err)
	assert.Equal(t, listing.RemoteStatusUnknown, remote.Status)
	assert.Equal(t, "7700000001", remote.PlatformListingID)
}

func TestCraigslistCreateRequiresCredentials(t *testing.T) {
	adapter, err := NewCraigslistAdapter(&CraigslistConfig{}, NewStaticCredentialSource())
	require.NoError(t, err)
	defer adapter.Close()

	_, err = adapter.CreateListing(context.Background(), listing.ListingRequest{Title: "couch"})
	assert.ErrorIs(t, err, listing.ErrPlatformNotProvisioned)
}

func TestExtractPostID(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://sfbay.craigslist.org/sfc/fso/d/couch/7700000001.html", "7700000001"},
		{"https://newyork.craigslist.org/mnh/ele/7712345678.html", "7712345678"},
		{"https://sfbay.craigslist.org/", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, extractPostID(tt.url))
	}
}
