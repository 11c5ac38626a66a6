package printorders

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storyprint-backend/internal/printables"
	dbpkg "github.com/angelmondragon/storyprint-backend/pkg/db"
	"github.com/angelmondragon/storyprint-backend/pkg/db/models"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storyprint-backend/pkg/errors"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/mixam"
	"github.com/angelmondragon/storyprint-backend/pkg/outbox"
	"github.com/angelmondragon/storyprint-backend/pkg/types"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`
CREATE TABLE print_orders (
  id TEXT PRIMARY KEY,
  parent_uid TEXT NOT NULL,
  story_id TEXT NOT NULL,
  output_id TEXT NOT NULL,
  print_product_id TEXT NOT NULL,
  product_snapshot TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity BETWEEN 1 AND 100),
  custom_options TEXT,
  estimated_cost TEXT NOT NULL,
  printable_files TEXT NOT NULL,
  printable_metadata TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  contact_email TEXT NOT NULL,
  mixam_order_id TEXT,
  mixam_job_number TEXT,
  mixam_status TEXT,
  mixam_status_checked_at DATETIME,
  mixam_response TEXT,
  tracking_url TEXT,
  estimated_delivery DATETIME,
  fulfillment_status TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  paid_at DATETIME,
  validation_result TEXT,
  fulfillment_notes TEXT,
  cancellation_reason TEXT,
  submit_attempts INTEGER NOT NULL DEFAULT 0,
  approved_at DATETIME,
  approved_by TEXT,
  submitted_at DATETIME,
  confirmed_at DATETIME,
  cancelled_at DATETIME,
  status_history TEXT NOT NULL DEFAULT '[]',
  process_log TEXT NOT NULL DEFAULT '[]',
  mixam_interactions TEXT NOT NULL DEFAULT '[]',
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX print_orders_mixam_order_id_key ON print_orders (mixam_order_id) WHERE mixam_order_id IS NOT NULL;`).Error)
	require.NoError(t, db.Exec(`
CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`).Error)
	return db
}

type stubBroker struct {
	submit  func(ctx context.Context, doc mixam.Document) (*mixam.SubmitResult, mixam.Interaction, error)
	confirm func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error)
	cancel  func(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error)
	status  func(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error)

	submitted []mixam.Document
}

func interactionFor(op, method, path string, status int, errMsg string) mixam.Interaction {
	return mixam.Interaction{
		Operation:  op,
		Method:     method,
		Path:       path,
		HTTPStatus: status,
		Error:      errMsg,
		StartedAt:  time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Duration:   120 * time.Millisecond,
	}
}

func (s *stubBroker) SubmitOrder(ctx context.Context, doc mixam.Document) (*mixam.SubmitResult, mixam.Interaction, error) {
	s.submitted = append(s.submitted, doc)
	if s.submit != nil {
		return s.submit(ctx, doc)
	}
	return &mixam.SubmitResult{OrderID: "mx-" + doc.Metadata.ExternalOrderID[:8], JobNumber: "J-1001", Status: "submitted", Raw: []byte(`{"orderId":"mx"}`)},
		interactionFor(mixam.OpSubmitOrder, "POST", "/api/public/orders", 201, ""), nil
}

func (s *stubBroker) ConfirmOrder(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
	if s.confirm != nil {
		return s.confirm(ctx, orderID)
	}
	return &mixam.StatusResult{OrderID: orderID, Status: "confirmed"},
		interactionFor(mixam.OpConfirmOrder, "POST", "/api/public/orders/"+orderID+"/confirm", 200, ""), nil
}

func (s *stubBroker) CancelOrder(ctx context.Context, orderID string) (*mixam.StatusResult, mixam.Interaction, error) {
	if s.cancel != nil {
		return s.cancel(ctx, orderID)
	}
	return &mixam.StatusResult{OrderID: orderID, Status: "cancelled"},
		interactionFor(mixam.OpCancelOrder, "POST", "/api/public/orders/"+orderID+"/cancel", 200, ""), nil
}

func (s *stubBroker) GetOrderStatus(ctx context.Context, ref mixam.OrderRef) (*mixam.OrderStatus, mixam.Interaction, error) {
	if s.status != nil {
		return s.status(ctx, ref)
	}
	return &mixam.OrderStatus{OrderID: ref.OrderID, Status: "submitted"},
		interactionFor(mixam.OpGetStatus, "GET", "/api/public/orders/"+ref.OrderID, 200, ""), nil
}

type stubAssets struct {
	resolve func(ctx context.Context, req printables.Request) (*printables.Assets, error)
}

func (s stubAssets) Resolve(ctx context.Context, req printables.Request) (*printables.Assets, error) {
	return s.resolve(ctx, req)
}

type stubCatalog struct {
	get func(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error)
}

func (s stubCatalog) Get(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error) {
	return s.get(ctx, id)
}

func sampleProduct(binding enums.Binding) *models.PrintProduct {
	return &models.PrintProduct{
		ID:        uuid.New(),
		Name:      "Square Paperback",
		Binding:   binding,
		Format:    types.PrintFormat{WidthMM: 210, HeightMM: 210},
		Substrate: types.Substrate{InteriorPaper: "silk", InteriorWeightGSM: 150, CoverPaper: "gloss", CoverWeightGSM: 300},
		PricingTiers: []types.PricingTier{
			{MinQuantity: 1, MaxQuantity: 9, UnitPrice: decimal.RequireFromString("12.00")},
			{MinQuantity: 10, MaxQuantity: 100, UnitPrice: decimal.RequireFromString("9.50")},
		},
		SetupFee:          decimal.RequireFromString("5.00"),
		ShippingFee:       decimal.RequireFromString("4.99"),
		Currency:          "GBP",
		ShippingCountries: pq.StringArray{"GB", "US"},
		Active:            true,
	}
}

func sampleAssets(pages int) *printables.Assets {
	return &printables.Assets{
		Files: types.PrintableFiles{
			CoverPDFURL:    "https://cdn.test/cover.pdf",
			InteriorPDFURL: "https://cdn.test/interior.pdf",
		},
		Metadata: types.PrintableMetadata{InteriorPageCount: pages, CoverPageCount: 4, TrimWidthMM: 210, TrimHeightMM: 210},
	}
}

type serviceFixture struct {
	db      *gorm.DB
	repo    *Repository
	broker  *stubBroker
	product *models.PrintProduct
	pages   int
	svc     Service
	logs    *bytes.Buffer
	admin   Actor
	parent  Actor
}

func newServiceFixture(t *testing.T, binding enums.Binding, pages int) *serviceFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	f := &serviceFixture{
		db:      db,
		repo:    NewRepository(db),
		broker:  &stubBroker{},
		product: sampleProduct(binding),
		pages:   pages,
		logs:    &bytes.Buffer{},
		admin:   Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
		parent:  Actor{UserID: uuid.New(), Role: enums.ActorRoleParent},
	}
	logg := logger.New(logger.Options{ServiceName: "printorders-test", Level: logger.ParseLevel("debug"), Output: f.logs})

	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	svc, err := NewService(ServiceParams{
		Repo:   f.repo,
		Broker: f.broker,
		Assets: stubAssets{resolve: func(ctx context.Context, req printables.Request) (*printables.Assets, error) {
			if req.ParentUID != f.parent.UserID {
				return nil, pkgerrors.New(pkgerrors.CodeForbidden, "story output belongs to another account")
			}
			return sampleAssets(f.pages), nil
		}},
		Catalog: stubCatalog{get: func(ctx context.Context, id uuid.UUID) (*models.PrintProduct, error) {
			if id != f.product.ID {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "print product not found")
			}
			return f.product, nil
		}},
		Notifier: NewNotifier(dbpkg.NewFromConn(db), outbox.NewService(outbox.NewRepository(db), logg), logg),
		Logger:   logg,
		Clock: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *serviceFixture) createInput(quantity int) CreateInput {
	return CreateInput{
		StoryID:   uuid.New(),
		OutputID:  uuid.New(),
		ProductID: f.product.ID,
		Quantity:  quantity,
		ShippingAddress: types.ShippingAddress{
			Name:        "Ada Lovelace",
			Line1:       "12 Marylebone Rd",
			City:        "London",
			PostalCode:  "nw15ly",
			CountryCode: "gb",
		},
		ContactEmail: "ada@example.test",
	}
}

func (f *serviceFixture) mustCreate(t *testing.T, quantity int) *models.PrintOrder {
	t.Helper()
	order, err := f.svc.Create(context.Background(), f.parent, f.createInput(quantity))
	require.NoError(t, err)
	return order
}

func (f *serviceFixture) mustApprove(t *testing.T, quantity int) *models.PrintOrder {
	t.Helper()
	order := f.mustCreate(t, quantity)
	order, err := f.svc.Approve(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	return order
}

func (f *serviceFixture) mustSubmit(t *testing.T, quantity int) *models.PrintOrder {
	t.Helper()
	order := f.mustApprove(t, quantity)
	order, err := f.svc.Submit(context.Background(), f.admin, order.ID)
	require.NoError(t, err)
	return order
}

func (f *serviceFixture) reload(t *testing.T, id uuid.UUID) *models.PrintOrder {
	t.Helper()
	order, err := f.repo.Get(context.Background(), id)
	require.NoError(t, err)
	return order
}

func (f *serviceFixture) eventTypes(t *testing.T, id uuid.UUID) []enums.OutboxEventType {
	t.Helper()
	rows, err := outbox.NewRepository(f.db).ListForAggregate(nil, enums.AggregatePrintOrder, id)
	require.NoError(t, err)
	out := make([]enums.OutboxEventType, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.EventType)
	}
	return out
}

func historyStatuses(order *models.PrintOrder) []string {
	out := make([]string, 0, len(order.StatusHistory))
	for _, entry := range order.StatusHistory {
		out = append(out, entry.Status)
	}
	return out
}

func logEvents(order *models.PrintOrder) []string {
	out := make([]string, 0, len(order.ProcessLog))
	for _, entry := range order.ProcessLog {
		out = append(out, entry.Event)
	}
	return out
}

func strPtr(value string) *string {
	return &value
}
