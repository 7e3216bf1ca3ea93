package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cloudfirestore "cloud.google.com/go/firestore"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/application/checkout"
	"storefront/internal/application/receipt"
	"storefront/internal/domain/cart"
	"storefront/internal/domain/catalog"
	"storefront/internal/domain/invoice"
	"storefront/internal/domain/ledger"
	"storefront/internal/domain/order"
	fsrepo "storefront/internal/infrastructure/firestore"
	"storefront/internal/infrastructure/gcs"
	"storefront/internal/infrastructure/id"
	"storefront/internal/infrastructure/mail"
	"storefront/internal/infrastructure/memory"
	"storefront/internal/infrastructure/notify"
	"storefront/internal/infrastructure/observability/oteltrace"
	"storefront/internal/infrastructure/observability/prometrics"
	"storefront/internal/infrastructure/observability/telemetry"
	"storefront/internal/infrastructure/observability/zaplogger"
	"storefront/internal/infrastructure/pdf"
	providerstripe "storefront/internal/infrastructure/stripe"
	"storefront/internal/observability"
	httppresentation "storefront/internal/presentation/http"
)

type backends struct {
	orders   order.Repository
	carts    cart.Repository
	products catalog.Repository
	stock    ledger.Ledger
	invoices invoice.Repository
	users    checkout.UserDirectory
	docs     receipt.DocumentStore
}

func main() {
	serviceName := getenvDefault("SERVICE_NAME", "storefront")
	env := getenvDefault("ENV", "dev")
	addr := getenvDefault("ADDR", ":8080")

	logger := zaplogger.New(
		observability.F("service", serviceName),
		observability.F("env", env),
	)

	registry := prometrics.New(serviceName, "")
	tel := telemetry.Default(registry, oteltrace.New(serviceName), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, cleanup, err := buildBackends(ctx, logger)
	if err != nil {
		log.Fatalf("backend init: %v", err)
	}
	defer cleanup()

	gateway := providerstripe.NewGateway(
		os.Getenv("STRIPE_API_KEY"),
		getenvDefault("STRIPE_CURRENCY", "usd"),
	)
	webhooks := providerstripe.NewWebhookVerifier(os.Getenv("STRIPE_WEBHOOK_SECRET"))

	var mailer receipt.Mailer
	if key := os.Getenv("SENDGRID_API_KEY"); key != "" {
		mailer = mail.NewSendGridMailer(
			key,
			getenvDefault("MAIL_FROM", "orders@storefront.example"),
			getenvDefault("MAIL_FROM_NAME", "Storefront"),
		)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	idGen := id.NewUUIDGenerator()
	renderer := pdf.NewInvoiceRenderer(getenvDefault("SELLER_NAME", "Storefront"))
	receiptSvc := receipt.NewService(renderer, be.docs, be.invoices, mailer, idGen, tel)

	dispatcher := notify.NewDispatcher(logger)
	dispatcher.Start(ctx)
	defer dispatcher.Stop(context.Background())
	if operator := os.Getenv("OPERATOR_EMAIL"); operator != "" {
		dispatcher.Subscribe("order.finalized", receipt.OperatorNotifier(mailer, operator, logger))
	}

	finalizer := checkout.NewFinalizer(be.orders, be.users, be.stock, receiptSvc, be.carts, dispatcher, tel)
	validator := checkout.NewValidator(be.carts, be.products)
	checkoutSvc := checkout.NewService(validator, be.orders, gateway, finalizer, idGen, tel)

	handler := httppresentation.NewHandler(checkoutSvc, webhooks, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("http_server_start", observability.F("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", observability.F("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err.Error()))
	} else {
		logger.Info("http_server_stopped")
	}
}

// buildBackends selects the persistence stack: BACKEND=gcp uses Firestore and
// Cloud Storage, anything else runs fully in memory with demo seed data.
func buildBackends(ctx context.Context, logger observability.Logger) (*backends, func(), error) {
	if getenvDefault("BACKEND", "memory") == "gcp" {
		projectID := os.Getenv("GCP_PROJECT_ID")
		fsClient, err := cloudfirestore.NewClient(ctx, projectID)
		if err != nil {
			return nil, nil, err
		}
		gcsClient, err := cloudstorage.NewClient(ctx)
		if err != nil {
			_ = fsClient.Close()
			return nil, nil, err
		}

		store := fsrepo.NewCatalogStore(fsClient)
		be := &backends{
			orders:   fsrepo.NewOrderRepository(fsClient),
			carts:    fsrepo.NewCartRepository(fsClient),
			products: store,
			stock:    store,
			invoices: fsrepo.NewInvoiceRepository(fsClient),
			users:    fsrepo.NewUserDirectory(fsClient),
			docs:     gcs.NewDocumentStore(gcsClient, os.Getenv("GCS_BUCKET"), projectID),
		}
		cleanup := func() {
			_ = gcsClient.Close()
			_ = fsClient.Close()
		}
		logger.Info("backend_ready", observability.F("backend", "gcp"))
		return be, cleanup, nil
	}

	store := memory.NewCatalogStore()
	users := memory.NewUserDirectory()
	carts := memory.NewCartRepository()
	seedDemoData(ctx, store, users, carts)

	be := &backends{
		orders:   memory.NewOrderRepository(),
		carts:    carts,
		products: store,
		stock:    store,
		invoices: memory.NewInvoiceRepository(),
		users:    users,
		docs:     memory.NewDocumentStore(),
	}
	logger.Info("backend_ready", observability.F("backend", "memory"))
	return be, func() {}, nil
}

func seedDemoData(ctx context.Context, store *memory.CatalogStore, users *memory.UserDirectory, carts *memory.CartRepository) {
	store.Seed(catalog.Product{ID: "sku-espresso", Name: "Espresso Beans 1kg", Price: 2400, Stock: 40})
	store.Seed(catalog.Product{ID: "sku-grinder", Name: "Hand Grinder", Price: 8900, DiscountPrice: 7500, Stock: 12})
	store.Seed(catalog.Product{ID: "sku-kettle", Name: "Gooseneck Kettle", Price: 5200, Stock: 7})

	users.Set("demo-user", "demo@storefront.example")
	_ = carts.Put(ctx, "demo-user", cart.Entry{ProductID: "sku-espresso", Quantity: 2})
	_ = carts.Put(ctx, "demo-user", cart.Entry{ProductID: "sku-grinder", Quantity: 1})
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
