package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslist/backend/internal/domain/catalog"
	"github.com/crosslist/backend/internal/domain/listing"
)

func ebayTestCredentials() *StaticCredentialSource {
	source := NewStaticCredentialSource()
	source.Set(listing.PlatformEbay, listing.Credentials{AccessToken: "ebay-token"})
	return source
}

func newTestEbayAdapter(t *testing.T, handler http.HandlerFunc) (*EBayAdapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	adapter, err := NewEBayAdapter(&EBayConfig{APIBaseURL: server.URL}, ebayTestCredentials())
	require.NoError(t, err)
	return adapter, server
}

func TestEBayConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *EBayConfig
		wantURL string
	}{
		{
			name:    "empty config defaults to production",
			config:  &EBayConfig{},
			wantURL: EBayProductionAPIURL,
		},
		{
			name:    "sandbox flag selects sandbox URL",
			config:  &EBayConfig{IsSandbox: true},
			wantURL: EBaySandboxAPIURL,
		},
		{
			name:    "explicit URL is kept",
			config:  &EBayConfig{APIBaseURL: "http://localhost:9999"},
			wantURL: "http://localhost:9999",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.config.Validate())
			assert.Equal(t, tt.wantURL, tt.config.APIBaseURL)
			assert.Equal(t, defaultEbayMarketplace, tt.config.Marketplace)
			assert.Equal(t, 30, tt.config.TimeoutSeconds)
		})
	}
}

func TestEBayCreateListing(t *testing.T) {
	var captured ebayListingPayload
	adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/listings", r.URL.Path)
		assert.Equal(t, "Bearer ebay-token", r.Header.Get("Authorization"))
		assert.Equal(t, "EBAY_US", r.Header.Get("X-EBAY-C-MARKETPLACE-ID"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(ebayCreateResponse{
			ListingID: "110123456789",
			ViewURL:   "https://www.ebay.com/itm/110123456789",
			Fees: &ebayFees{
				InsertionFee:  decimal.NewFromFloat(0.35),
				FinalValueFee: decimal.NewFromFloat(1.29),
			},
		})
	})

	result, err := adapter.CreateListing(context.Background(), listing.ListingRequest{
		Title:     "Vintage Camera",
		Price:     decimal.NewFromFloat(49.99),
		Quantity:  1,
		Condition: catalog.ConditionGood,
	})
	require.NoError(t, err)

	assert.Equal(t, "110123456789", result.PlatformListingID)
	assert.Equal(t, "https://www.ebay.com/itm/110123456789", result.URL)
	require.NotNil(t, result.Fees)
	assert.True(t, result.Fees.ListingFee.Equal(decimal.NewFromFloat(0.35)))
	assert.NotEmpty(t, result.Raw)

	assert.Equal(t, "Vintage Camera", captured.Title)
	assert.Equal(t, "4000", captured.ConditionID)
	assert.Equal(t, "FIXED_PRICE", captured.Format)
	assert.Equal(t, "GTC", captured.Duration)
}

func TestEBayUpdateListing(t *testing.T) {
	adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/listings/110123456789", r.URL.Path)

		var payload ebayUpdatePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.NotNil(t, payload.Price)
		assert.True(t, payload.Price.Value.Equal(decimal.NewFromInt(42)))
		assert.Nil(t, payload.Title)

		w.Write([]byte(`{}`))
	})

	price := decimal.NewFromInt(42)
	result, err := adapter.UpdateListing(context.Background(), "110123456789", listing.ListingUpdate{Price: &price})
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestEBayEndListing(t *testing.T) {
	t.Run("ended with timestamp", func(t *testing.T) {
		adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/listings/110123456789/end", r.URL.Path)
			_ = json.NewEncoder(w).Encode(ebayEndResponse{
				ListingID: "110123456789",
				EndedAt:   "2026-03-01T12:00:00Z",
			})
		})

		result, err := adapter.EndListing(context.Background(), "110123456789", "sold elsewhere")
		require.NoError(t, err)
		assert.Equal(t, 2026, result.EndedAt.Year())
	})

	t.Run("already gone counts as ended", func(t *testing.T) {
		adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		result, err := adapter.EndListing(context.Background(), "110123456789", "")
		require.NoError(t, err)
		assert.False(t, result.EndedAt.IsZero())
	})
}

func TestEBayGetListing(t *testing.T) {
	adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ebayGetResponse{
			ListingID:    "110123456789",
			Status:       "ENDED",
			Price:        ebayMoney{Value: decimal.NewFromFloat(49.99), Currency: "USD"},
			Quantity:     0,
			QuantitySold: 1,
			HitCount:     250,
			WatchCount:   12,
		})
	})

	remote, err := adapter.GetListing(context.Background(), "110123456789")
	require.NoError(t, err)

	assert.Equal(t, listing.RemoteStatusSold, remote.Status)
	assert.Equal(t, 250, remote.Views)
	assert.Equal(t, 12, remote.Watchers)
	require.NotNil(t, remote.Quantity)
	assert.Equal(t, 0, *remote.Quantity)
}

func TestEBayErrorMapping(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantCode      string
		wantPermanent bool
	}{
		{
			name:          "unauthorized is permanent auth failure",
			status:        http.StatusUnauthorized,
			body:          `{"errors":[{"errorId":931,"message":"Auth token is invalid"}]}`,
			wantCode:      listing.AdapterErrCodeAuth,
			wantPermanent: true,
		},
		{
			name:          "rate limited is transient",
			status:        http.StatusTooManyRequests,
			body:          `{"errors":[{"errorId":21919144,"message":"call limit exceeded"}]}`,
			wantCode:      listing.AdapterErrCodeRateLimited,
			wantPermanent: false,
		},
		{
			name:          "validation failure is permanent",
			status:        http.StatusBadRequest,
			body:          `{"errors":[{"errorId":107,"message":"Invalid category","longMessage":"The category is not valid"}]}`,
			wantCode:      listing.AdapterErrCodeValidation,
			wantPermanent: true,
		},
		{
			name:          "server error is transient",
			status:        http.StatusInternalServerError,
			body:          `{}`,
			wantCode:      listing.AdapterErrCodeUnreachable,
			wantPermanent: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := adapter.CreateListing(context.Background(), listing.ListingRequest{Title: "x", Price: decimal.NewFromInt(1), Quantity: 1})
			require.Error(t, err)

			var adapterErr *listing.AdapterError
			require.ErrorAs(t, err, &adapterErr)
			assert.Equal(t, listing.PlatformEbay, adapterErr.Platform)
			assert.Equal(t, tt.wantCode, adapterErr.Code)
			assert.Equal(t, tt.wantPermanent, adapterErr.Permanent)
		})
	}
}

func TestEBayLongErrorMessagePreferred(t *testing.T) {
	adapter, _ := newTestEbayAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"short","longMessage":"the long explanation"}]}`))
	})

	_, err := adapter.GetListing(context.Background(), "1")
	var adapterErr *listing.AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "the long explanation", adapterErr.Message)
}

func TestEBayMissingCredentials(t *testing.T) {
	adapter, err := NewEBayAdapter(&EBayConfig{APIBaseURL: "http://localhost:1"}, NewStaticCredentialSource())
	require.NoError(t, err)

	_, err = adapter.GetListing(context.Background(), "1")
	assert.True(t, errors.Is(err, listing.ErrPlatformNotProvisioned))
}
