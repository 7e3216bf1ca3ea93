package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/order"
	"storefront/internal/observability"
	"storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCasePlace  = "checkout.place"
	useCaseVerify = "checkout.verify_payment"

	peerPaymentProvider    = "payment-provider"
	endpointCreateIntent   = "payment_intent.create"
	endpointRetrieveIntent = "payment_intent.get"

	// PaymentMethodCard defers finalization until the provider confirms the
	// charge; PaymentMethodCOD finalizes immediately at checkout.
	PaymentMethodCard = "card"
	PaymentMethodCOD  = "cod"
)

// Service drives checkout start (validate cart, create order, open a payment
// intent) and the synchronous completion trigger. The hard logic lives in the
// Finalizer; the service stays thin.
type Service struct {
	validator *Validator
	orders    order.Repository
	gateway   PaymentGateway
	finalizer *Finalizer
	idGen     IDGenerator

	tel          observability.Observability
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

func NewService(
	validator *Validator,
	orders order.Repository,
	gateway PaymentGateway,
	finalizer *Finalizer,
	idGen IDGenerator,
	tel observability.Observability,
) *Service {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Service{
		validator:    validator,
		orders:       orders,
		gateway:      gateway,
		finalizer:    finalizer,
		idGen:        idGen,
		tel:          tel,
		log:          tel.Logger().With(observability.F("component", "checkout_service")),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// observeExternal records one call to an external collaborator.
func (s *Service) observeExternal(peer, endpoint string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	s.extCounter.Add(1,
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", peer),
		observability.L("endpoint", endpoint),
	)
}

type CheckoutInput struct {
	UserID        string
	ContactEmail  string // optional; falls back to the user directory
	PaymentMethod string // card (default) or cod
}

type CheckoutResult struct {
	OrderID string
	Total   int64
	Status  order.Status

	// Card path only.
	PaymentIntentID string
	ClientSecret    string

	// COD path only: finalization already ran.
	InvoiceURL string
}

// Checkout validates the cart, captures it into a PENDING_PAYMENT order, and
// either opens a payment intent (card) or finalizes on the spot (cod).
// Inventory is untouched here: stock is only committed at finalization,
// because an order may never be paid.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (_ *CheckoutResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("user_id", in.UserID))

	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"Checkout",
		attribute.String("use_case", useCasePlace),
		attribute.String("checkout.user_id", in.UserID),
	)
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "checkout failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
		s.reqCounter.Add(1,
			observability.L("use_case", useCasePlace),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(time.Since(start).Seconds(), observability.L("use_case", useCasePlace))
	}()

	if in.UserID == "" {
		return nil, errors.New("checkout: user id is required")
	}
	method := in.PaymentMethod
	if method == "" {
		method = PaymentMethodCard
	}
	if method != PaymentMethodCard && method != PaymentMethodCOD {
		return nil, fmt.Errorf("checkout: unknown payment method %q", in.PaymentMethod)
	}

	snapshot, err := s.validator.Validate(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	entity, err := order.New(s.idGen.NewID(), in.UserID, snapshot.Items)
	if err != nil {
		return nil, fmt.Errorf("checkout: construct order: %w", err)
	}
	if err := s.orders.Insert(ctx, entity); err != nil {
		return nil, wrapRepositoryError(err)
	}
	logger.Info("order_created",
		observability.F("order_id", entity.ID),
		observability.F("total", entity.Total),
		observability.F("items", len(entity.Items)),
		observability.F("payment_method", method),
	)

	if method == PaymentMethodCOD {
		res, err := s.finalizer.Finalize(ctx, entity.ID, in.ContactEmail)
		if err != nil {
			return nil, err
		}
		return &CheckoutResult{
			OrderID:    entity.ID,
			Total:      entity.Total,
			Status:     order.StatusPaid,
			InvoiceURL: res.InvoiceURL,
		}, nil
	}

	extStart := time.Now()
	intent, err := s.gateway.CreateIntent(ctx, CreateIntentInput{
		OrderID:      entity.ID,
		UserID:       in.UserID,
		ContactEmail: in.ContactEmail,
		Amount:       entity.Total,
	})
	s.observeExternal(peerPaymentProvider, endpointCreateIntent, extStart, err)
	if err != nil {
		return nil, fmt.Errorf("checkout: create payment intent for %s: %w", entity.ID, err)
	}

	return &CheckoutResult{
		OrderID:         entity.ID,
		Total:           entity.Total,
		Status:          entity.Status,
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
	}, nil
}

// VerifyPayment is the synchronous completion trigger: the client reports a
// confirmed card payment and we re-query the provider before trusting it.
// Finalize runs only on a provider-confirmed succeeded intent.
func (s *Service) VerifyPayment(ctx context.Context, intentID string) (_ *FinalizeResult, err error) {
	ctx, span := s.tel.Tracer().Start(ctx, spanPrefix+"VerifyPayment",
		attribute.String("use_case", useCaseVerify),
		attribute.String("payment.intent_id", intentID),
	)
	start := time.Now()
	outcome := "success"
	defer func() {
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, "verify failed")
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
		s.reqCounter.Add(1,
			observability.L("use_case", useCaseVerify),
			observability.L("outcome", outcome),
		)
		s.durHistogram.Observe(time.Since(start).Seconds(), observability.L("use_case", useCaseVerify))
	}()

	if intentID == "" {
		return nil, errors.New("checkout: payment intent id is required")
	}

	extStart := time.Now()
	intent, err := s.gateway.RetrieveIntent(ctx, intentID)
	s.observeExternal(peerPaymentProvider, endpointRetrieveIntent, extStart, err)
	if err != nil {
		return nil, fmt.Errorf("checkout: retrieve intent %s: %w", intentID, err)
	}
	if intent.Status != IntentStatusSucceeded {
		return nil, fmt.Errorf("checkout: intent %s status %s: %w", intentID, intent.Status, ErrPaymentNotConfirmed)
	}
	if intent.OrderID == "" {
		return nil, fmt.Errorf("checkout: intent %s carries no order correlation: %w", intentID, ErrOrderNotFound)
	}

	return s.finalizer.Finalize(ctx, intent.OrderID, intent.ContactEmail)
}

// Finalize exposes the orchestrator to the asynchronous trigger (webhook).
func (s *Service) Finalize(ctx context.Context, orderID, contactEmailHint string) (*FinalizeResult, error) {
	return s.finalizer.Finalize(ctx, orderID, contactEmailHint)
}

func (s *Service) Get(ctx context.Context, orderID string) (*order.Order, error) {
	if orderID == "" {
		return nil, errors.New("checkout: order id is required")
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, wrapRepositoryError(err)
	}
	return o, nil
}

// Cancel is the explicit cancellation path. Stock is never touched: it is
// only committed at finalization.
func (s *Service) Cancel(ctx context.Context, orderID string) error {
	if orderID == "" {
		return errors.New("checkout: order id is required")
	}
	if err := s.orders.Cancel(ctx, orderID); err != nil {
		if errors.Is(err, order.ErrAlreadyPaid) || errors.Is(err, order.ErrInvalidTransition) {
			return fmt.Errorf("checkout: cancel %s: %w", orderID, order.ErrInvalidTransition)
		}
		return wrapRepositoryError(err)
	}
	s.log.Info("order_cancelled", observability.F("order_id", orderID))
	return nil
}
