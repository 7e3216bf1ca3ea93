package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/event"
	"storefront/internal/domain/ledger"
	"storefront/internal/domain/order"
	"storefront/internal/observability"
	"storefront/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCaseFinalize = "checkout.finalize"
	spanPrefix      = "UC."
	publishTimeout  = 300 * time.Millisecond
	publishPeer     = "notify"
	publishEndpoint = "order.finalized"
)

// FinalizeResult reports whether the call was a no-op replay and where the
// invoice document lives.
type FinalizeResult struct {
	AlreadyFinalized bool
	InvoiceURL       string
}

// Finalizer is the completion state machine. Finalize is safe to call an
// unbounded number of times for the same order: both completion triggers race
// to call it and the provider's webhook delivery is at-least-once.
type Finalizer struct {
	orders    order.Repository
	users     UserDirectory
	stock     ledger.Ledger
	receipts  ReceiptDeliverer
	carts     cart.Repository
	publisher event.Publisher
	locks     *keyedMutex

	tel          observability.Observability
	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
	stockCounter observability.Counter
	extCounter   observability.Counter
	extHistogram observability.Histogram
}

// NewFinalizer wires the dependencies required to finalize orders. publisher
// may be nil when no operator notification is configured.
func NewFinalizer(
	orders order.Repository,
	users UserDirectory,
	stock ledger.Ledger,
	receipts ReceiptDeliverer,
	carts cart.Repository,
	publisher event.Publisher,
	tel observability.Observability,
) *Finalizer {
	if tel == nil {
		tel = observability.Nop()
	}
	metrics := tel.Metrics()
	return &Finalizer{
		orders:       orders,
		users:        users,
		stock:        stock,
		receipts:     receipts,
		carts:        carts,
		publisher:    publisher,
		locks:        newKeyedMutex(),
		tel:          tel,
		log:          tel.Logger().With(observability.F("use_case", useCaseFinalize)),
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
		stockCounter: metrics.Counter(observability.MStockDecrements),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
}

// Finalize runs the completion sequence for one order:
// idempotency gate, contact resolution, stock decrement, receipt delivery,
// cart cleanup, and last of all the conditional PENDING_PAYMENT -> PAID
// transition. Stock is committed before any customer-facing artifact is
// produced; the status flip comes last so a crash mid-sequence leaves the
// order retryable rather than PAID with missing side effects.
func (f *Finalizer) Finalize(ctx context.Context, orderID, contactEmailHint string) (_ *FinalizeResult, err error) {
	logger := logctx.FromOr(ctx, f.log).With(observability.F("order_id", orderID))

	ctx, span := f.tel.Tracer().Start(ctx, spanPrefix+"Finalize",
		attribute.String("use_case", useCaseFinalize),
		attribute.String("order.id", orderID),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"

	defer func() {
		lat := time.Since(start).Seconds()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		f.reqCounter.Add(1,
			observability.L("use_case", useCaseFinalize),
			observability.L("outcome", outcome),
		)
		f.durHistogram.Observe(lat, observability.L("use_case", useCaseFinalize))

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", lat),
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	// Serialize per order id: two near-simultaneous triggers must not both
	// pass the idempotency gate before either commits PAID.
	unlock := f.locks.Lock(orderID)
	defer unlock()

	o, err := f.orders.Get(ctx, orderID)
	if err != nil {
		outcome, statusText = "error", "ORDER_LOAD_FAILED"
		return nil, wrapRepositoryError(err)
	}

	// Idempotency gate: duplicates are normal, not exceptional.
	if o.Status == order.StatusPaid {
		statusText = "IDEMPOTENT_REPLAY"
		span.AddEvent("order.finalize_replay")
		return &FinalizeResult{AlreadyFinalized: true, InvoiceURL: o.InvoiceURL}, nil
	}
	if o.Status == order.StatusCancelled {
		outcome, statusText = "error", "ORDER_CANCELLED"
		return nil, fmt.Errorf("checkout: finalize %s: %w", orderID, order.ErrInvalidTransition)
	}

	email, err := f.resolveContact(ctx, o, contactEmailHint)
	if err != nil {
		outcome, statusText = "error", "CONTACT_MISSING"
		return nil, err
	}

	if err := f.commitStock(ctx, o); err != nil {
		outcome, statusText = "error", "STOCK_DECREMENT_FAILED"
		return nil, err
	}

	receipt, err := f.receipts.Deliver(ctx, o, email)
	if err != nil {
		// Blocking: the order stays PENDING_PAYMENT and the committed
		// movements make the retry skip straight past the decrements.
		outcome, statusText = "error", "RECEIPT_DELIVERY_FAILED"
		return nil, fmt.Errorf("checkout: deliver receipt for %s: %w", orderID, err)
	}

	f.publishFinalized(ctx, logger, o, email, receipt.DocumentURL)

	if err := f.carts.Clear(ctx, o.UserID); err != nil {
		// Cleanup only; stale cart entries are harmless and cleared on the
		// next checkout attempt.
		logger.Warn("cart_clear_failed",
			observability.F("user_id", o.UserID),
			observability.F("error", err.Error()),
		)
	}

	if err := f.orders.MarkPaid(ctx, orderID, receipt.DocumentURL); err != nil {
		if errors.Is(err, order.ErrAlreadyPaid) {
			// Lost a cross-process race after the gate; everything behind the
			// decrement keys is already committed exactly once.
			statusText = "IDEMPOTENT_REPLAY"
			return &FinalizeResult{AlreadyFinalized: true, InvoiceURL: receipt.DocumentURL}, nil
		}
		outcome, statusText = "error", "MARK_PAID_FAILED"
		return nil, wrapRepositoryError(err)
	}

	span.AddEvent("order.finalized")
	return &FinalizeResult{AlreadyFinalized: false, InvoiceURL: receipt.DocumentURL}, nil
}

// resolveContact prefers the trigger's hint (payment metadata), then the
// owning user's email.
func (f *Finalizer) resolveContact(ctx context.Context, o *order.Order, hint string) (string, error) {
	if hint != "" {
		return hint, nil
	}
	email, err := f.users.EmailFor(ctx, o.UserID)
	if err != nil {
		return "", fmt.Errorf("checkout: look up user %s: %w", o.UserID, err)
	}
	if email == "" {
		return "", fmt.Errorf("checkout: order %s: %w", o.ID, ErrMissingContactInfo)
	}
	return email, nil
}

// commitStock decrements every line item. A failed decrement compensates the
// ones already applied in this call, so a partial decrement is never
// observable; movements from earlier finalize attempts stay put and replay as
// no-ops.
func (f *Finalizer) commitStock(ctx context.Context, o *order.Order) error {
	applied := make([]string, 0, len(o.Items))
	for _, it := range o.Items {
		wasApplied, err := f.stock.Decrement(ctx, o.ID, it.ProductID, it.Quantity)
		if err != nil {
			f.stockCounter.Add(1, observability.L("outcome", "error"))
			for _, productID := range applied {
				if rerr := f.stock.Restore(ctx, o.ID, productID); rerr != nil {
					f.log.Error("stock_restore_failed",
						observability.F("order_id", o.ID),
						observability.F("product_id", productID),
						observability.F("error", rerr.Error()),
					)
				}
			}
			return fmt.Errorf("checkout: finalize %s: product %s: %w", o.ID, it.ProductID, err)
		}
		if wasApplied {
			applied = append(applied, it.ProductID)
			f.stockCounter.Add(1, observability.L("outcome", "applied"))
		} else {
			f.stockCounter.Add(1, observability.L("outcome", "replayed"))
		}
	}
	return nil
}

func (f *Finalizer) publishFinalized(ctx context.Context, logger observability.Logger, o *order.Order, email, invoiceURL string) {
	if f.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()
	err := f.publisher.Publish(pubCtx, NewOrderFinalizedEvent(o, email, invoiceURL))
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	f.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
		observability.L("outcome", outcome),
	)
	f.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
	)
	if err != nil {
		logger.Warn("event_publish_failed",
			observability.F("event", publishEndpoint),
			observability.F("error", err.Error()),
		)
	}
}
