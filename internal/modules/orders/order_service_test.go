package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"courier-assistant/internal/models"
	"courier-assistant/pkg/maps"
	"courier-assistant/pkg/utils"
)

type fakeOrderRepo struct {
	orders   map[string]*models.Order // keyed by order number
	clearErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*models.Order{}}
}

func (r *fakeOrderRepo) Upsert(_ context.Context, o *models.Order) (*models.Order, error) {
	cp := *o
	if existing, ok := r.orders[o.OrderNumber]; ok {
		cp.ID = existing.ID
		cp.Status = existing.Status
		cp.ManualArrival = existing.ManualArrival
		cp.IsManualArrival = existing.IsManualArrival
	} else {
		cp.ID = int64(len(r.orders) + 1)
		cp.Status = models.OrderStatusPending
	}
	r.orders[o.OrderNumber] = &cp
	out := cp
	return &out, nil
}

func (r *fakeOrderRepo) FindByNumber(_ context.Context, _ string, _ time.Time, orderNumber string) (*models.Order, error) {
	o, ok := r.orders[orderNumber]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) ListByDate(_ context.Context, _ string, _ time.Time) ([]*models.Order, error) {
	var out []*models.Order
	for _, o := range r.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeOrderRepo) UpdateContact(_ context.Context, _ string, _ time.Time, orderNumber string, req models.UpdateOrderContactRequest) (*models.Order, error) {
	o, ok := r.orders[orderNumber]
	if !ok {
		return nil, models.ErrNotFound
	}
	if req.Phone != nil {
		o.Phone = *req.Phone
	}
	if req.CustomerName != nil {
		o.CustomerName = *req.CustomerName
	}
	if req.Comment != nil {
		o.Comment = *req.Comment
	}
	cp := *o
	return &cp, nil
}

func (r *fakeOrderRepo) UpdateCoordinates(_ context.Context, _ string, _ time.Time, orderNumber string, lat, lon float64) error {
	o, ok := r.orders[orderNumber]
	if !ok {
		return models.ErrNotFound
	}
	o.Latitude, o.Longitude = &lat, &lon
	return nil
}

func (r *fakeOrderRepo) MarkDelivered(_ context.Context, _ string, _ time.Time, orderNumber string) error {
	o, ok := r.orders[orderNumber]
	if !ok {
		return models.ErrNotFound
	}
	o.Status = models.OrderStatusDelivered
	return nil
}

func (r *fakeOrderRepo) SetManualArrival(_ context.Context, _ string, _ time.Time, orderNumber string, arrival time.Time) error {
	o, ok := r.orders[orderNumber]
	if !ok {
		return models.ErrNotFound
	}
	o.ManualArrival = &arrival
	o.IsManualArrival = true
	return nil
}

func (r *fakeOrderRepo) ClearManualArrival(_ context.Context, _ string, _ time.Time, orderNumber string) error {
	o, ok := r.orders[orderNumber]
	if !ok {
		return models.ErrNotFound
	}
	o.ManualArrival = nil
	o.IsManualArrival = false
	return nil
}

func (r *fakeOrderRepo) DeleteDayData(_ context.Context, _ string, _ time.Time) (models.ClearDayResult, error) {
	if r.clearErr != nil {
		return models.ClearDayResult{}, r.clearErr
	}
	res := models.ClearDayResult{Orders: int64(len(r.orders))}
	res.CallStatuses = res.Orders
	if res.Orders > 0 {
		res.RouteSnapshots = 1
		res.StartLocations = 1
	}
	r.orders = map[string]*models.Order{}
	return res, nil
}

type syncCall struct {
	orderNumber string
	phone       string
	name        string
}

type fakeCallSync struct {
	synced    []syncCall
	cancelled []string
	syncErr   error
}

func (f *fakeCallSync) SyncContact(_ context.Context, _ string, _ time.Time, orderNumber, phone, customerName string) error {
	if f.syncErr != nil {
		return f.syncErr
	}
	f.synced = append(f.synced, syncCall{orderNumber, phone, customerName})
	return nil
}

func (f *fakeCallSync) CancelForDelivered(_ context.Context, _ string, _ time.Time, orderNumber string) error {
	f.cancelled = append(f.cancelled, orderNumber)
	return nil
}

func newOrderFixture() (*Service, *fakeOrderRepo, *fakeCallSync, *maps.MockProvider) {
	repo := newFakeOrderRepo()
	calls := &fakeCallSync{}
	geocoder := maps.NewMockProvider(nil)
	return NewService(repo, geocoder, calls), repo, calls, geocoder
}

func TestAddOrderGeocodesAddress(t *testing.T) {
	svc, repo, _, geocoder := newOrderFixture()
	geocoder.AddAddress("Tverskaya 1", maps.Point{Lat: 55.757, Lon: 37.611})

	o, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber:    "A1",
		Phone:          "+79001234567",
		Address:        "Tverskaya 1",
		DeliveryWindow: "10:00 - 14:00",
	})
	if err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if !o.HasCoordinates() {
		t.Fatal("address was not geocoded")
	}
	if o.WindowStart == nil || o.WindowStart.Format("15:04") != "10:00" {
		t.Fatalf("window start = %v", o.WindowStart)
	}
	if repo.orders["A1"] == nil {
		t.Fatal("order not persisted")
	}
}

func TestAddOrderUnresolvableAddressStillSaved(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	o, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber: "A1",
		Phone:       "+79001234567",
		Address:     "nowhere at all",
	})
	if err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	if o.HasCoordinates() {
		t.Fatal("coordinates invented for an unresolvable address")
	}
	if repo.orders["A1"] == nil {
		t.Fatal("order rejected instead of saved without coordinates")
	}
}

func TestUpdateContactSyncsCallStatus(t *testing.T) {
	svc, _, calls, _ := newOrderFixture()
	today, _ := utils.ParseDate("")

	if _, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber: "A1", Phone: "+79001111111", Address: "a",
	}); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	phone := "+79002222222"
	if _, err := svc.UpdateContact(context.Background(), "user-1", today, "A1", models.UpdateOrderContactRequest{Phone: &phone}); err != nil {
		t.Fatalf("UpdateContact: %v", err)
	}
	if len(calls.synced) != 1 || calls.synced[0].phone != phone {
		t.Fatalf("synced = %+v, want the new phone pushed to the call row", calls.synced)
	}

	// A comment-only edit does not touch the call row.
	comment := "second entrance"
	if _, err := svc.UpdateContact(context.Background(), "user-1", today, "A1", models.UpdateOrderContactRequest{Comment: &comment}); err != nil {
		t.Fatalf("UpdateContact comment: %v", err)
	}
	if len(calls.synced) != 1 {
		t.Fatalf("comment edit triggered a contact sync: %+v", calls.synced)
	}
}

func TestUpdateContactNoCallRowIsFine(t *testing.T) {
	svc, _, calls, _ := newOrderFixture()
	calls.syncErr = models.ErrNotFound
	today, _ := utils.ParseDate("")

	if _, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber: "A1", Phone: "+79001111111", Address: "a",
	}); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	phone := "+79002222222"
	if _, err := svc.UpdateContact(context.Background(), "user-1", today, "A1", models.UpdateOrderContactRequest{Phone: &phone}); err != nil {
		t.Fatalf("UpdateContact with no call row: %v", err)
	}
}

func TestMarkDeliveredRetiresCall(t *testing.T) {
	svc, repo, calls, _ := newOrderFixture()
	today, _ := utils.ParseDate("")

	if _, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber: "A1", Phone: "+79001111111", Address: "a",
	}); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}

	if err := svc.MarkDelivered(context.Background(), "user-1", today, "A1"); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	if repo.orders["A1"].Status != models.OrderStatusDelivered {
		t.Fatalf("status = %s", repo.orders["A1"].Status)
	}
	if len(calls.cancelled) != 1 || calls.cancelled[0] != "A1" {
		t.Fatalf("cancelled = %v, want [A1]", calls.cancelled)
	}

	if err := svc.MarkDelivered(context.Background(), "user-1", today, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestAddOrderPreservesManualArrivalOnRefresh(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()

	if _, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber: "A1", Phone: "+79001111111", Address: "a",
	}); err != nil {
		t.Fatalf("AddOrder: %v", err)
	}
	pin := time.Now().Add(2 * time.Hour)
	today, _ := utils.ParseDate("")
	if err := svc.SetManualArrival(context.Background(), "user-1", today, "A1", pin); err != nil {
		t.Fatalf("SetManualArrival: %v", err)
	}

	// Re-importing the same order keeps the pin.
	if _, err := svc.AddOrder(context.Background(), "user-1", models.CreateOrderRequest{
		OrderNumber: "A1", Phone: "+79001111111", Address: "a", Comment: "updated",
	}); err != nil {
		t.Fatalf("AddOrder refresh: %v", err)
	}
	if o := repo.orders["A1"]; !o.IsManualArrival || o.ManualArrival == nil {
		t.Fatal("manual arrival pin lost on re-import")
	}
}

func TestClearDayReportsPerTableCounts(t *testing.T) {
	svc, repo, _, geocoder := newOrderFixture()
	geocoder.AddAddress("Tverskaya 1", maps.Point{Lat: 55.757, Lon: 37.611})
	geocoder.AddAddress("Arbat 10", maps.Point{Lat: 55.749, Lon: 37.591})

	for _, req := range []models.CreateOrderRequest{
		{OrderNumber: "A1", Phone: "+79001234567", Address: "Tverskaya 1"},
		{OrderNumber: "A2", Phone: "+79001234568", Address: "Arbat 10"},
	} {
		if _, err := svc.AddOrder(context.Background(), "user-1", req); err != nil {
			t.Fatalf("AddOrder %s: %v", req.OrderNumber, err)
		}
	}

	res, err := svc.ClearDay(context.Background(), "user-1", utils.Midnight(time.Now()))
	if err != nil {
		t.Fatalf("ClearDay: %v", err)
	}
	if res.Orders != 2 || res.CallStatuses != 2 || res.RouteSnapshots != 1 || res.StartLocations != 1 {
		t.Fatalf("ClearDay = %+v", res)
	}
	if len(repo.orders) != 0 {
		t.Fatal("orders survived the wipe")
	}
}

func TestClearDayRepositoryFailure(t *testing.T) {
	svc, repo, _, _ := newOrderFixture()
	repo.clearErr = errors.New("deadlock detected")

	if _, err := svc.ClearDay(context.Background(), "user-1", utils.Midnight(time.Now())); err == nil {
		t.Fatal("expected error")
	}
}
