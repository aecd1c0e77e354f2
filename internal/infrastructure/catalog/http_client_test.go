package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crosslist/backend/internal/domain/catalog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(&Config{BaseURL: server.URL, APIKey: "test-key"})
	require.NoError(t, err)
	return client
}

func TestClientConfigValidate(t *testing.T) {
	err := (&Config{}).Validate()
	assert.ErrorIs(t, err, ErrCatalogConfigMissingBaseURL)

	config := &Config{BaseURL: "http://catalog:8080"}
	require.NoError(t, config.Validate())
	assert.Equal(t, 10, config.TimeoutSeconds)
}

func TestGetProduct(t *testing.T) {
	productID := uuid.New()

	t.Run("found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/products/"+productID.String(), r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("X-API-Key"))
			_ = json.NewEncoder(w).Encode(productPayload{
				ID:        productID,
				Title:     "Record Player",
				Price:     decimal.NewFromFloat(75.50),
				Quantity:  2,
				Condition: "good",
				Status:    "active",
			})
		})

		product, err := client.GetProduct(context.Background(), productID)
		require.NoError(t, err)
		assert.Equal(t, "Record Player", product.Title)
		assert.Equal(t, catalog.ConditionGood, product.Condition)
		assert.Equal(t, catalog.ProductStatusActive, product.Status)
		assert.True(t, product.InStock())
	})

	t.Run("not found", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.GetProduct(context.Background(), productID)
		assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := client.GetProduct(context.Background(), productID)
		assert.ErrorIs(t, err, catalog.ErrCatalogUnavailable)
	})
}

func TestSetProductStatus(t *testing.T) {
	productID := uuid.New()

	t.Run("valid status", func(t *testing.T) {
		var captured map[string]string
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPatch, r.Method)
			assert.Equal(t, "/products/"+productID.String()+"/status", r.URL.Path)
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			w.Write([]byte(`{}`))
		})

		require.NoError(t, client.SetProductStatus(context.Background(), productID, catalog.ProductStatusSold))
		assert.Equal(t, "sold", captured["status"])
	})

	t.Run("invalid status rejected locally", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})

		err := client.SetProductStatus(context.Background(), productID, catalog.ProductStatus("broken"))
		assert.ErrorIs(t, err, catalog.ErrInvalidProductStatus)
	})
}

func TestDecrementQuantity(t *testing.T) {
	productID := uuid.New()
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/products/"+productID.String()+"/decrement", r.URL.Path)

		var payload map[string]int
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, 1, payload["quantity"])

		_ = json.NewEncoder(w).Encode(decrementResponse{Remaining: 0})
	})

	remaining, err := client.DecrementQuantity(context.Background(), productID, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
}
