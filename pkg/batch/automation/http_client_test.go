package automation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/tigerroll/relist/pkg/batch/core/config"
	model "github.com/tigerroll/relist/pkg/batch/core/domain/model"
	"github.com/tigerroll/relist/pkg/batch/support/util/exception"
)

func newTestClient(serverURL string) *HTTPClient {
	return NewHTTPClient(config.AutomationConfig{
		Endpoint:       serverURL,
		APIKey:         "secret-key",
		TimeoutSeconds: 2,
	})
}

func testItem() *model.BatchItem {
	price := int64(248000)
	item := model.NewBatchItem("batch-1", "offer-1", true)
	item.ModifiedPrice = &price
	return item
}

func TestModify_SendsPayloadAndAuth(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody modifyRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(apiResponse{Success: true})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	require.NoError(t, client.Modify(context.Background(), testItem()))

	assert.Equal(t, "/listings/modify", gotPath)
	assert.Equal(t, "Bearer secret-key", gotAuth)
	assert.Equal(t, "offer-1", gotBody.OfferID)
	require.NotNil(t, gotBody.Price)
	assert.Equal(t, int64(248000), *gotBody.Price)
	assert.Nil(t, gotBody.Rent) // omitted fields stay unset
}

func TestReAdvertise_HitsReAdvertisePath(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(apiResponse{Success: true})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	require.NoError(t, client.ReAdvertise(context.Background(), testItem()))
	assert.Equal(t, "/listings/readvertise", gotPath)
}

func TestPost_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "portal overloaded", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Modify(context.Background(), testItem())
	require.Error(t, err)

	var batchErr *exception.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.True(t, batchErr.IsRetryable())
}

func TestPost_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown offer", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Modify(context.Background(), testItem())
	require.Error(t, err)

	var batchErr *exception.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.False(t, batchErr.IsRetryable())
}

func TestPost_BusinessRejectionIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(apiResponse{Success: false, Message: "listing is under contract"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Modify(context.Background(), testItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "under contract")

	var batchErr *exception.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.False(t, batchErr.IsRetryable())
}

func TestPost_ConnectionRefusedIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listens anymore

	client := newTestClient(server.URL)
	err := client.Modify(context.Background(), testItem())
	require.Error(t, err)

	var batchErr *exception.BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.True(t, batchErr.IsRetryable())
}

func TestPost_UnparseableSuccessBodyIsSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	assert.NoError(t, client.Modify(context.Background(), testItem()))
}
