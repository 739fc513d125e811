package paymentgql_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/omnixys/invoice-service/internal/apperrors"
	"github.com/omnixys/invoice-service/internal/clients/paymentgql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchPayments_EmptyIDsSkipsNetwork(t *testing.T) {
	srv := paymentServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty id set")
	})
	client := paymentgql.NewClient(srv.URL)

	payments, err := client.FetchPayments(context.Background(), nil, "")

	require.NoError(t, err)
	assert.Empty(t, payments)
}

func TestFetchPayments_Success(t *testing.T) {
	paymentID := uuid.New()
	var gotAuth string
	srv := paymentServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")

		var body struct {
			Variables struct {
				IDs []string `json:"ids"`
			} `json:"variables"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{paymentID.String()}, body.Variables.IDs)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"payments":[{"id":"` + paymentID.String() + `","amount":"42.50","created":"2026-08-01T10:00:00Z"}]}}`))
	})
	client := paymentgql.NewClient(srv.URL)

	payments, err := client.FetchPayments(context.Background(), []uuid.UUID{paymentID}, "caller-token")

	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, paymentID, payments[0].ID)
	assert.True(t, payments[0].Amount.Equal(decimal.NewFromFloat(42.50)))
	assert.Equal(t, "Bearer caller-token", gotAuth)
}

func TestFetchPayments_NoAuthHeaderWithoutToken(t *testing.T) {
	var gotAuth string
	srv := paymentServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"payments":[]}}`))
	})
	client := paymentgql.NewClient(srv.URL)

	_, err := client.FetchPayments(context.Background(), []uuid.UUID{uuid.New()}, "")

	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestFetchPayments_FailuresFoldIntoNotFound(t *testing.T) {
	goodID := uuid.New().String()
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "transport failure",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "graphql error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"errors":[{"message":"payments unavailable"}]}`))
			},
		},
		{
			name: "malformed id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"data":{"payments":[{"id":"not-a-uuid","amount":"1.00","created":"2026-08-01T10:00:00Z"}]}}`))
			},
		},
		{
			name: "malformed amount",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"data":{"payments":[{"id":"` + goodID + `","amount":"abc","created":"2026-08-01T10:00:00Z"}]}}`))
			},
		},
		{
			name: "malformed timestamp",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(`{"data":{"payments":[{"id":"` + goodID + `","amount":"1.00","created":"yesterday"}]}}`))
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := paymentServer(t, tc.handler)
			client := paymentgql.NewClient(srv.URL)

			_, err := client.FetchPayments(context.Background(), []uuid.UUID{uuid.New()}, "")

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrNotFound)
			assert.EqualError(t, err, "payments could not be retrieved")
		})
	}
}
