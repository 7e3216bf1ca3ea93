package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storefront/internal/application/checkout"
	"storefront/internal/domain/order"
	providerstripe "storefront/internal/infrastructure/stripe"
	"storefront/internal/observability"
	"storefront/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerStripeSig      = "Stripe-Signature"

	maxWebhookBody = 1 << 16
)

// WebhookVerifier authenticates one provider delivery and extracts the
// correlation metadata planted at intent creation.
type WebhookVerifier interface {
	VerifyAndParse(payload []byte, sigHeader string) (*providerstripe.Notification, error)
}

type Handler struct {
	checkout *checkout.Service
	webhooks WebhookVerifier
	log      observability.Logger
	tel      observability.Observability
}

func NewHandler(checkoutSvc *checkout.Service, webhooks WebhookVerifier, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		checkout: checkoutSvc,
		webhooks: webhooks,
		log:      tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel:      tel,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Trace + request logger + HTTP metrics + access log on every route.
	r.Use(ObservabilityMiddleware(h.log, h.tel))

	r.Post("/checkout", h.handleCheckout)
	r.Post("/payments/verify", h.handleVerifyPayment)
	r.Post("/webhooks/stripe", h.handleStripeWebhook)
	r.Get("/orders/{id}", h.handleGetOrder)
	r.Post("/orders/{id}/cancel", h.handleCancelOrder)
	r.Get("/health", h.handleHealth)

	return r
}

type checkoutRequest struct {
	UserID        string `json:"user_id"`
	ContactEmail  string `json:"contact_email,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type checkoutResponse struct {
	OrderID         string       `json:"order_id"`
	Total           int64        `json:"total"`
	Status          order.Status `json:"status"`
	PaymentIntentID string       `json:"payment_intent_id,omitempty"`
	ClientSecret    string       `json:"client_secret,omitempty"`
	InvoiceURL      string       `json:"invoice_url,omitempty"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.checkout.Checkout(r.Context(), checkout.CheckoutInput{
		UserID:        req.UserID,
		ContactEmail:  req.ContactEmail,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		OrderID:         result.OrderID,
		Total:           result.Total,
		Status:          result.Status,
		PaymentIntentID: result.PaymentIntentID,
		ClientSecret:    result.ClientSecret,
		InvoiceURL:      result.InvoiceURL,
	})
}

type verifyPaymentRequest struct {
	PaymentIntentID string `json:"payment_intent_id"`
}

type verifyPaymentResponse struct {
	AlreadyFinalized bool   `json:"already_finalized"`
	InvoiceURL       string `json:"invoice_url"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.checkout.VerifyPayment(r.Context(), req.PaymentIntentID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyPaymentResponse{
		AlreadyFinalized: result.AlreadyFinalized,
		InvoiceURL:       result.InvoiceURL,
	})
}

// handleStripeWebhook is the asynchronous completion trigger. The response
// code is the acknowledgement protocol: 2xx stops redelivery, anything else
// asks the provider to retry. Terminal failures are therefore acknowledged;
// only retryable ones surface as 5xx.
func (h *Handler) handleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	logger := logctx.FromOr(r.Context(), h.log)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	n, err := h.webhooks.VerifyAndParse(payload, r.Header.Get(headerStripeSig))
	if err != nil {
		if errors.Is(err, providerstripe.ErrBadSignature) {
			logger.Warn("webhook_signature_rejected", observability.F("error", err.Error()))
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	switch n.Kind {
	case providerstripe.EventPaymentSucceeded:
	case providerstripe.EventPaymentFailed:
		logger.Info("payment_failed_notification",
			observability.F("intent_id", n.IntentID),
			observability.F("order_id", n.OrderID),
		)
		writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
		return
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if n.OrderID == "" {
		// Nothing to correlate against; redelivery cannot fix that.
		logger.Error("webhook_missing_order_correlation", observability.F("intent_id", n.IntentID))
		writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
		return
	}

	result, err := h.checkout.Finalize(r.Context(), n.OrderID, n.ContactEmail)
	if err != nil {
		if checkout.IsTerminal(err) {
			logger.Error("webhook_finalize_terminal",
				observability.F("order_id", n.OrderID),
				observability.F("error", err.Error()),
			)
			writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "finalized",
		"already_finalized": result.AlreadyFinalized,
	})
}

type orderItemResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"user_id"`
	Items      []orderItemResponse `json:"items"`
	Total      int64               `json:"total"`
	Status     order.Status        `json:"status"`
	InvoiceURL string              `json:"invoice_url,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkout.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]orderItemResponse, 0, len(o.Items))
	for _, li := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   li.ProductID,
			ProductName: li.ProductName,
			Quantity:    li.Quantity,
			UnitPrice:   li.UnitPrice,
		})
	}
	writeJSON(w, http.StatusOK, orderResponse{
		ID:         o.ID,
		UserID:     o.UserID,
		Items:      items,
		Total:      o.Total,
		Status:     o.Status,
		InvoiceURL: o.InvoiceURL,
		CreatedAt:  o.CreatedAt,
	})
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(order.StatusCancelled)})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	_ = ctx
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	var rejection *checkout.CartRejectionError
	switch {
	case errors.Is(err, checkout.ErrOrderNotFound),
		errors.Is(err, checkout.ErrProductNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.As(err, &rejection):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":    err.Error(),
			"rejected": rejection.Rejected,
		})
	case errors.Is(err, checkout.ErrInsufficientStock),
		errors.Is(err, order.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, checkout.ErrMissingContactInfo):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, checkout.ErrPaymentNotConfirmed):
		writeError(w, http.StatusPaymentRequired, err)
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrInvalidAmount),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrNoItems):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
