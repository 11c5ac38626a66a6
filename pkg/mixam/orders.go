package mixam

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const ordersPath = "/api/public/orders"

// SubmitResult is the broker's acknowledgement of a new order.
type SubmitResult struct {
	OrderID   string          `json:"orderId"`
	JobNumber string          `json:"jobNumber"`
	Status    string          `json:"status"`
	Raw       json.RawMessage `json:"-"`
}

type StatusResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// OrderRef addresses a broker order by id or, failing that, by job number.
type OrderRef struct {
	OrderID   string
	JobNumber string
}

func (r OrderRef) IsZero() bool {
	return strings.TrimSpace(r.OrderID) == "" && strings.TrimSpace(r.JobNumber) == ""
}

type OrderStatus struct {
	OrderID           string     `json:"orderId"`
	JobNumber         string     `json:"jobNumber"`
	Status            string     `json:"status"`
	TrackingURL       *string    `json:"trackingUrl,omitempty"`
	EstimatedDelivery *time.Time `json:"estimatedDeliveryDate,omitempty"`
}

// SubmitOrder posts an MxJdf document and returns the broker identifiers.
func (c *Client) SubmitOrder(ctx context.Context, doc Document) (*SubmitResult, Interaction, error) {
	var raw json.RawMessage
	interaction, err := c.do(ctx, call{
		op:      OpSubmitOrder,
		method:  http.MethodPost,
		path:    ordersPath,
		body:    doc,
		summary: doc.Summary(),
	}, &raw)
	if err != nil {
		return nil, interaction, err
	}

	var result SubmitResult
	if err := json.Unmarshal(raw, &result); err != nil {
		err = &Error{Op: OpSubmitOrder, StatusCode: interaction.HTTPStatus, Reason: fmt.Sprintf("decode response: %v", err), Err: err}
		interaction.Error = err.Error()
		return nil, interaction, err
	}
	if strings.TrimSpace(result.OrderID) == "" {
		err := &Error{Op: OpSubmitOrder, StatusCode: interaction.HTTPStatus, Reason: "response missing orderId"}
		interaction.Error = err.Error()
		return nil, interaction, err
	}
	result.Raw = raw
	return &result, interaction, nil
}

func (c *Client) ConfirmOrder(ctx context.Context, orderID string) (*StatusResult, Interaction, error) {
	return c.orderAction(ctx, OpConfirmOrder, orderID, "confirm")
}

func (c *Client) CancelOrder(ctx context.Context, orderID string) (*StatusResult, Interaction, error) {
	return c.orderAction(ctx, OpCancelOrder, orderID, "cancel")
}

func (c *Client) orderAction(ctx context.Context, op, orderID, action string) (*StatusResult, Interaction, error) {
	path := fmt.Sprintf("%s/%s/%s", ordersPath, url.PathEscape(strings.TrimSpace(orderID)), action)
	if strings.TrimSpace(orderID) == "" {
		err := &Error{Op: op, Reason: "order id is required"}
		return nil, Interaction{Operation: op, Method: http.MethodPost, Path: path, Error: err.Error()}, err
	}
	var result StatusResult
	interaction, err := c.do(ctx, call{
		op:      op,
		method:  http.MethodPost,
		path:    path,
		summary: "orderId=" + orderID,
	}, &result)
	if err != nil {
		return nil, interaction, err
	}
	if result.OrderID == "" {
		result.OrderID = orderID
	}
	return &result, interaction, nil
}

// GetOrderStatus fetches the current broker view of an order. The order id is
// used when known, otherwise the job number is searched.
func (c *Client) GetOrderStatus(ctx context.Context, ref OrderRef) (*OrderStatus, Interaction, error) {
	if ref.IsZero() {
		err := &Error{Op: OpGetStatus, Reason: "order id or job number is required"}
		return nil, Interaction{Operation: OpGetStatus, Method: http.MethodGet, Path: ordersPath, Error: err.Error()}, err
	}

	if id := strings.TrimSpace(ref.OrderID); id != "" {
		var status OrderStatus
		interaction, err := c.do(ctx, call{
			op:      OpGetStatus,
			method:  http.MethodGet,
			path:    fmt.Sprintf("%s/%s", ordersPath, url.PathEscape(id)),
			summary: "orderId=" + id,
		}, &status)
		if err != nil {
			return nil, interaction, err
		}
		return &status, interaction, nil
	}

	jobNumber := strings.TrimSpace(ref.JobNumber)
	var page struct {
		Orders []OrderStatus `json:"orders"`
	}
	interaction, err := c.do(ctx, call{
		op:      OpGetStatus,
		method:  http.MethodGet,
		path:    ordersPath,
		query:   url.Values{"jobNumber": []string{jobNumber}},
		summary: "jobNumber=" + jobNumber,
	}, &page)
	if err != nil {
		return nil, interaction, err
	}
	if len(page.Orders) == 0 {
		err := &Error{Op: OpGetStatus, StatusCode: http.StatusNotFound, Reason: fmt.Sprintf("no order with job number %s", jobNumber)}
		interaction.Error = err.Error()
		return nil, interaction, err
	}
	return &page.Orders[0], interaction, nil
}
