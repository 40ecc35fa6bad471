package service

import (
	"context"
	"mime/multipart"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medshop-backend/internal/model"
	"medshop-backend/internal/repository"
)

// applyHistoryUpdate simula cómo mongo aplica el update del motor de
// estados ($set + $push + $min) sobre los campos embebidos.
func applyHistoryUpdate(status *string, history *[]model.StatusRecord, timeline *model.Timeline, updatedAt *time.Time, update bson.M) {
	set := update["$set"].(bson.M)
	*status = set["status"].(string)
	*updatedAt = set["updated_at"].(time.Time)

	push := update["$push"].(bson.M)
	*history = append(*history, push["status_history"].(model.StatusRecord))

	min := update["$min"].(bson.M)
	for key, v := range min {
		name := strings.TrimPrefix(key, "timeline.")
		ts := v.(time.Time)
		if *timeline == nil {
			*timeline = model.Timeline{}
		}
		if old, ok := (*timeline)[name]; !ok || ts.Before(old) {
			(*timeline)[name] = ts
		}
	}
}

// --- productos ---

type fakeProductRepo struct {
	products    map[primitive.ObjectID]*model.Product
	decremented map[primitive.ObjectID]int
	restored    map[primitive.ObjectID]int
}

func newFakeProductRepo(products ...*model.Product) *fakeProductRepo {
	f := &fakeProductRepo{
		products:    map[primitive.ObjectID]*model.Product{},
		decremented: map[primitive.ObjectID]int{},
		restored:    map[primitive.ObjectID]int{},
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProductRepo) Insert(ctx context.Context, p *model.Product) error {
	p.ID = primitive.NewObjectID()
	f.products[p.ID] = p
	return nil
}

func (f *fakeProductRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if _, ok := f.products[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (f *fakeProductRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProductRepo) FindActive(ctx context.Context) ([]*model.Product, error) {
	var out []*model.Product
	for _, p := range f.products {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeProductRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (bool, error) {
	p, ok := f.products[id]
	if !ok || !p.IsActive || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	f.decremented[id] += qty
	return true, nil
}

func (f *fakeProductRepo) RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error {
	if p, ok := f.products[id]; ok {
		p.Stock += qty
	}
	f.restored[id] += qty
	return nil
}

// --- órdenes ---

type fakeOrderRepo struct {
	orders map[primitive.ObjectID]*model.Order
}

func newFakeOrderRepo(orders ...*model.Order) *fakeOrderRepo {
	f := &fakeOrderRepo{orders: map[primitive.ObjectID]*model.Order{}}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrderRepo) Insert(ctx context.Context, o *model.Order) error {
	o.ID = primitive.NewObjectID()
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	f.orders[o.ID] = o
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) FindAll(ctx context.Context) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range f.orders {
		cp := *o
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeOrderRepo) FindByStatus(ctx context.Context, status string) ([]*model.Order, error) {
	var out []*model.Order
	for _, o := range f.orders {
		if o.Status == status {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	o, ok := f.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	applyHistoryUpdate(&o.Status, &o.StatusHistory, &o.Timeline, &o.UpdatedAt, update)
	return nil
}

func (f *fakeOrderRepo) MarkStockReleased(ctx context.Context, id primitive.ObjectID) (bool, error) {
	o, ok := f.orders[id]
	if !ok {
		return false, nil
	}
	if o.StockReleasedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	o.StockReleasedAt = &now
	return true, nil
}

// --- carritos ---

type fakeCartRepo struct {
	cart    *model.Cart
	cleared bool
}

func (f *fakeCartRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) (*model.Cart, error) {
	if f.cart == nil {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	cp := *f.cart
	return &cp, nil
}

func (f *fakeCartRepo) Save(ctx context.Context, c *model.Cart) error {
	f.cart = c
	return nil
}

func (f *fakeCartRepo) Clear(ctx context.Context, userID primitive.ObjectID) error {
	f.cleared = true
	if f.cart != nil {
		f.cart.Items = []model.CartItem{}
	}
	return nil
}

// --- recetas ---

type fakePrescriptionRepo struct {
	prescriptions map[primitive.ObjectID]*model.Prescription
	linked        map[primitive.ObjectID]primitive.ObjectID
}

func newFakePrescriptionRepo(ps ...*model.Prescription) *fakePrescriptionRepo {
	f := &fakePrescriptionRepo{
		prescriptions: map[primitive.ObjectID]*model.Prescription{},
		linked:        map[primitive.ObjectID]primitive.ObjectID{},
	}
	for _, p := range ps {
		f.prescriptions[p.ID] = p
	}
	return f
}

func (f *fakePrescriptionRepo) Insert(ctx context.Context, p *model.Prescription) error {
	p.ID = primitive.NewObjectID()
	f.prescriptions[p.ID] = p
	return nil
}

func (f *fakePrescriptionRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Prescription, error) {
	p, ok := f.prescriptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePrescriptionRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Prescription, error) {
	var out []*model.Prescription
	for _, p := range f.prescriptions {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakePrescriptionRepo) FindAll(ctx context.Context) ([]*model.Prescription, error) {
	var out []*model.Prescription
	for _, p := range f.prescriptions {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePrescriptionRepo) ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	p, ok := f.prescriptions[id]
	if !ok {
		return repository.ErrNotFound
	}
	applyHistoryUpdate(&p.Status, &p.StatusHistory, &p.Timeline, &p.UpdatedAt, update)
	return nil
}

func (f *fakePrescriptionRepo) LinkOrder(ctx context.Context, id, orderID primitive.ObjectID) error {
	if _, ok := f.prescriptions[id]; !ok {
		return repository.ErrNotFound
	}
	f.linked[id] = orderID
	return nil
}

// --- devoluciones ---

type fakeReturnRepo struct {
	returns map[primitive.ObjectID]*model.Return
}

func newFakeReturnRepo(rets ...*model.Return) *fakeReturnRepo {
	f := &fakeReturnRepo{returns: map[primitive.ObjectID]*model.Return{}}
	for _, r := range rets {
		f.returns[r.ID] = r
	}
	return f
}

func (f *fakeReturnRepo) Insert(ctx context.Context, r *model.Return) error {
	r.ID = primitive.NewObjectID()
	f.returns[r.ID] = r
	return nil
}

func (f *fakeReturnRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Return, error) {
	r, ok := f.returns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeReturnRepo) FindActiveByOrder(ctx context.Context, orderID primitive.ObjectID) (*model.Return, error) {
	for _, r := range f.returns {
		if r.OrderID == orderID && r.Status != "rejected" && r.Status != "cancelled" {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeReturnRepo) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Return, error) {
	var out []*model.Return
	for _, r := range f.returns {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeReturnRepo) FindAll(ctx context.Context) ([]*model.Return, error) {
	var out []*model.Return
	for _, r := range f.returns {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeReturnRepo) ApplyTransition(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	r, ok := f.returns[id]
	if !ok {
		return repository.ErrNotFound
	}
	applyHistoryUpdate(&r.Status, &r.StatusHistory, &r.Timeline, &r.UpdatedAt, update)
	return nil
}

func (f *fakeReturnRepo) MarkRefunded(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r, ok := f.returns[id]
	if !ok {
		return false, nil
	}
	if r.RefundedAt != nil {
		return false, nil
	}
	now := time.Now().UTC()
	r.RefundedAt = &now
	return true, nil
}

// --- colaboradores ---

type fakeStorage struct {
	stored  int
	deleted []string
}

func (f *fakeStorage) Store(ctx context.Context, file *multipart.FileHeader, folder string) (*model.FileRef, error) {
	f.stored++
	return &model.FileRef{URL: "http://files.local/" + folder + "/x.pdf", PublicID: folder + "/x.pdf", Storage: "local"}, nil
}

func (f *fakeStorage) Delete(ctx context.Context, publicID string) error {
	f.deleted = append(f.deleted, publicID)
	return nil
}

type fakeEvents struct {
	placed      int
	transitions []string
}

func (f *fakeEvents) OrderPlaced(ctx context.Context, o *model.Order) { f.placed++ }

func (f *fakeEvents) StatusChanged(ctx context.Context, entity, id, newStatus, actor string) {
	f.transitions = append(f.transitions, entity+":"+newStatus)
}
