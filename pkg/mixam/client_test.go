package mixam

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storyprint-backend/pkg/config"
	"github.com/angelmondragon/storyprint-backend/pkg/metrics"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func newTestClient(t *testing.T, rt roundTripFunc, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{WithHTTPClient(&http.Client{Transport: rt}), WithBaseURL("http://mixam.test")}, opts...)
	client, err := NewClient(config.MixamConfig{APIToken: "static-token"}, opts...)
	require.NoError(t, err)
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(config.MixamConfig{})
	require.Error(t, err)
}

func TestSubmitOrderSuccess(t *testing.T) {
	var captured *http.Request
	var body map[string]any
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		captured = req
		raw, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &body))
		return jsonResponse(http.StatusCreated, `{"orderId":"mx-1","jobNumber":"J-77","status":"PENDING"}`), nil
	})

	doc := mustDocument(t)
	result, interaction, err := client.SubmitOrder(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "http://mixam.test/api/public/orders", captured.URL.String())
	assert.Equal(t, http.MethodPost, captured.Method)
	assert.Equal(t, "Bearer static-token", captured.Header.Get("Authorization"))
	assert.Equal(t, "order-123", body["metadata"].(map[string]any)["externalOrderId"])

	assert.Equal(t, "mx-1", result.OrderID)
	assert.Equal(t, "J-77", result.JobNumber)
	assert.Equal(t, "PENDING", result.Status)
	assert.JSONEq(t, `{"orderId":"mx-1","jobNumber":"J-77","status":"PENDING"}`, string(result.Raw))

	assert.Equal(t, OpSubmitOrder, interaction.Operation)
	assert.Equal(t, http.StatusCreated, interaction.HTTPStatus)
	assert.Contains(t, interaction.RequestSummary, "externalOrderId=order-123")
	assert.Empty(t, interaction.Error)
}

func TestSubmitOrderBrokerRejectionKeepsReason(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnprocessableEntity, `{"message":"Interior page count must be divisible by 4"}`), nil
	})

	_, interaction, err := client.SubmitOrder(context.Background(), mustDocument(t))
	require.Error(t, err)

	mxErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnprocessableEntity, mxErr.StatusCode)
	assert.Equal(t, "Interior page count must be divisible by 4", mxErr.Reason)
	assert.Equal(t, http.StatusUnprocessableEntity, interaction.HTTPStatus)
	assert.Contains(t, interaction.Error, "divisible by 4")
}

func TestTransportFailureStillProducesInteraction(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset by peer")
	})

	_, interaction, err := client.ConfirmOrder(context.Background(), "mx-1")
	require.Error(t, err)
	assert.Equal(t, OpConfirmOrder, interaction.Operation)
	assert.Equal(t, "/api/public/orders/mx-1/confirm", interaction.Path)
	assert.Zero(t, interaction.HTTPStatus)
	assert.Contains(t, interaction.Error, "connection reset by peer")
}

func TestCancelOrderInProduction(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "/api/public/orders/mx-9/cancel", req.URL.Path)
		return jsonResponse(http.StatusConflict, `{"error":"Order is already in production"}`), nil
	})

	_, _, err := client.CancelOrder(context.Background(), "mx-9")
	require.Error(t, err)
	assert.True(t, IsInProduction(err))
}

func TestIsInProductionMatchesReasonText(t *testing.T) {
	assert.True(t, IsInProduction(&Error{Op: OpCancelOrder, StatusCode: 400, Reason: "Cannot cancel: order In Production"}))
	assert.False(t, IsInProduction(&Error{Op: OpCancelOrder, StatusCode: 500, Reason: "upstream timeout"}))
	assert.False(t, IsInProduction(errors.New("plain error")))
}

func TestIsInProductionNeedsReasonNotJustConflict(t *testing.T) {
	assert.False(t, IsInProduction(&Error{Op: OpCancelOrder, StatusCode: http.StatusConflict, Reason: "Order is already cancelled"}))
	assert.False(t, IsInProduction(&Error{Op: OpCancelOrder, StatusCode: http.StatusConflict, Reason: "Duplicate request"}))
	assert.False(t, IsInProduction(&Error{Op: OpCancelOrder, StatusCode: http.StatusConflict}))
	assert.True(t, IsInProduction(&Error{Op: OpCancelOrder, StatusCode: http.StatusConflict, Reason: "Production has started for this order"}))
}

func TestGetOrderStatusByIDAndJobNumber(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		paths = append(paths, req.URL.String())
		if req.URL.Query().Get("jobNumber") != "" {
			return jsonResponse(http.StatusOK, `{"orders":[{"orderId":"mx-2","jobNumber":"J-2","status":"Dispatched","trackingUrl":"https://track.test/1"}]}`), nil
		}
		return jsonResponse(http.StatusOK, `{"orderId":"mx-1","jobNumber":"J-1","status":"IN PRODUCTION"}`), nil
	})

	byID, _, err := client.GetOrderStatus(context.Background(), OrderRef{OrderID: "mx-1", JobNumber: "J-1"})
	require.NoError(t, err)
	assert.Equal(t, "IN PRODUCTION", byID.Status)

	byJob, interaction, err := client.GetOrderStatus(context.Background(), OrderRef{JobNumber: "J-2"})
	require.NoError(t, err)
	assert.Equal(t, "mx-2", byJob.OrderID)
	require.NotNil(t, byJob.TrackingURL)
	assert.Equal(t, "https://track.test/1", *byJob.TrackingURL)
	assert.Equal(t, "jobNumber=J-2", interaction.RequestSummary)

	assert.Equal(t, []string{
		"http://mixam.test/api/public/orders/mx-1",
		"http://mixam.test/api/public/orders?jobNumber=J-2",
	}, paths)

	_, _, err = client.GetOrderStatus(context.Background(), OrderRef{})
	require.Error(t, err)
}

func TestGetOrderStatusUnknownJobNumber(t *testing.T) {
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"orders":[]}`), nil
	})
	_, interaction, err := client.GetOrderStatus(context.Background(), OrderRef{JobNumber: "J-404"})
	require.Error(t, err)
	assert.NotEmpty(t, interaction.Error)
}

func TestPasswordTokenIsCachedUntilNearExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var exchanges int32
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == authPath {
			n := atomic.AddInt32(&exchanges, 1)
			raw, _ := io.ReadAll(req.Body)
			assert.JSONEq(t, `{"username":"ops","password":"pw"}`, string(raw))
			return jsonResponse(http.StatusOK, `{"token":"tok-`+string(rune('0'+n))+`","expiresIn":600}`), nil
		}
		return jsonResponse(http.StatusOK, `{"orderId":"mx-1","status":"confirmed","auth":"`+req.Header.Get("Authorization")+`"}`), nil
	})
	client, err := NewClient(
		config.MixamConfig{Username: "ops", Password: "pw"},
		WithHTTPClient(&http.Client{Transport: rt}),
		WithBaseURL("http://mixam.test"),
		WithClock(func() time.Time { return now }),
	)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := client.ConfirmOrder(context.Background(), "mx-1")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&exchanges))

	now = now.Add(9*time.Minute + 30*time.Second)
	_, _, err = client.ConfirmOrder(context.Background(), "mx-1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&exchanges))
}

func TestTokenExchangeFailureIsBrokerError(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusUnauthorized, `{"message":"bad credentials"}`), nil
	})
	client, err := NewClient(config.MixamConfig{Username: "ops", Password: "nope"}, WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	_, interaction, err := client.CancelOrder(context.Background(), "mx-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad credentials")
	assert.Contains(t, interaction.Error, "authenticate")
}

func TestClientRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	client := newTestClient(t, func(*http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, `oops`), nil
	}, WithMetrics(metrics.NewBrokerMetrics(reg)))

	_, _, err := client.ConfirmOrder(context.Background(), "mx-1")
	require.Error(t, err)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "mixam_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, l := range m.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			if labels["operation"] == OpConfirmOrder && labels["outcome"] == metrics.OutcomeError {
				found = m.GetCounter().GetValue() == 1
			}
		}
	}
	assert.True(t, found, "expected one failed confirm_order sample")
}

func TestNilClientReturnsError(t *testing.T) {
	var client *Client
	_, interaction, err := client.ConfirmOrder(context.Background(), "mx-1")
	require.Error(t, err)
	assert.Equal(t, OpConfirmOrder, interaction.Operation)
}
