package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DRSN-tech/inventory-backend/internal/domain"
	"github.com/DRSN-tech/inventory-backend/pkg/e"
	"github.com/DRSN-tech/inventory-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

var errBoom = errors.New("boom")

func ptr[T any](v T) *T {
	return &v
}

func discardLogger() logger.Logger {
	return logger.NewSlogLogger(logger.WithWriter(io.Discard))
}

var (
	admin   = &domain.Principal{UserID: 1, Role: domain.RoleAdmin}
	cashier = &domain.Principal{UserID: 2, Role: domain.RoleCashier}
)

// fakeTxManager выполняет функцию без транзакции и считает вызовы.
type fakeTxManager struct {
	calls int
}

func (f *fakeTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

type fakeProductRepo struct {
	mu        sync.Mutex
	products  map[int64]*domain.Product
	nextID    int64
	createErr error
	updateErr error
	lastList  *ProductFilter
	summaryAt time.Time
	onGet     func() // вызывается после чтения, вне блокировки
}

func newFakeProductRepo(products ...*domain.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[int64]*domain.Product)}
	for _, p := range products {
		r.nextID++
		cp := *p
		cp.ID = r.nextID
		r.products[cp.ID] = &cp
	}
	return r
}

func (r *fakeProductRepo) sorted() []domain.Product {
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeProductRepo) Create(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	cp := *product
	cp.ID = r.nextID
	r.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	p, ok := r.products[id]
	var cp domain.Product
	if ok {
		cp = *p
	}
	onGet := r.onGet
	r.mu.Unlock()

	if !ok {
		return nil, e.ErrProductNotFound
	}
	if onGet != nil {
		onGet()
	}
	return &cp, nil
}

func (r *fakeProductRepo) GetForUpdate(ctx context.Context, id int64) (*domain.Product, error) {
	return r.GetByID(ctx, id)
}

func (r *fakeProductRepo) Update(_ context.Context, product *domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	if _, ok := r.products[product.ID]; !ok {
		return nil, e.ErrProductNotFound
	}
	cp := *product
	r.products[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return e.ErrProductNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *fakeProductRepo) List(_ context.Context, filter *ProductFilter) ([]domain.Product, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastList = filter

	var matched []domain.Product
	for _, p := range r.sorted() {
		if filter.Category != "" && p.Category != filter.Category {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Search)) {
			continue
		}
		matched = append(matched, p)
	}

	total := len(matched)
	if filter.Offset >= total {
		return []domain.Product{}, total, nil
	}
	end := filter.Offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[filter.Offset:end], total, nil
}

func (r *fakeProductRepo) ListAll(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(), nil
}

func (r *fakeProductRepo) ImageURLs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var urls []string
	for _, p := range r.sorted() {
		if p.ImageURL != nil {
			urls = append(urls, *p.ImageURL)
		}
	}
	return urls, nil
}

func (r *fakeProductRepo) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.products), nil
}

func (r *fakeProductRepo) LowStock(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Product
	for _, p := range r.sorted() {
		if p.IsLowStock() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) Summary(_ context.Context, expiresBefore time.Time) (*StatsSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaryAt = expiresBefore

	s := &StatsSummary{InventoryValue: decimal.Zero}
	for _, p := range r.sorted() {
		s.TotalProducts++
		if p.IsLowStock() {
			s.LowStock++
		}
		if p.ExpirationDate != nil && !p.ExpirationDate.After(expiresBefore) {
			s.ExpiringSoon++
		}
		s.InventoryValue = s.InventoryValue.Add(p.InventoryValue())
	}
	return s, nil
}

type fakeCategoryRepo struct {
	categories []string
	calls      int
	onList     func()
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]string, error) {
	f.calls++
	out := f.categories
	if f.onList != nil {
		f.onList()
	}
	return out, nil
}

type fakeImages struct {
	mu          sync.Mutex
	validateErr error
	storeErr    error
	removeErr   error
	stored      []string
	removed     []string
	cleaned     []string
	referenced  []string
	seq         int
}

func (f *fakeImages) Validate(_ *ProductImage) error {
	return f.validateErr
}

func (f *fakeImages) StoreImage(_ context.Context, image *ProductImage) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return "", f.storeErr
	}
	f.seq++
	url := "/uploads/img" + strings.Repeat("x", f.seq) + "." + domain.ImageExt(image.Filename)
	f.stored = append(f.stored, url)
	return url, nil
}

func (f *fakeImages) RemoveImage(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	f.removed = append(f.removed, url)
	return nil
}

func (f *fakeImages) CleanupImages(urls []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleaned = append(f.cleaned, urls...)
}

func (f *fakeImages) OpenImage(_ context.Context, _ string) (*ImageObject, error) {
	return nil, e.ErrImageNotFound
}

func (f *fakeImages) SweepOrphans(_ context.Context, referenced []string, _ time.Duration) (int, error) {
	f.referenced = referenced
	return 2, nil
}

func (f *fakeImages) Ping(_ context.Context) error {
	return nil
}

type fakeCache struct {
	products       map[int64]*domain.Product
	categories     []string
	hasCategories  bool
	deletedIDs     []int64
	categoryResets int

	productGen    map[int64]int64
	categoriesGen int64
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		products:   make(map[int64]*domain.Product),
		productGen: make(map[int64]int64),
	}
}

func (f *fakeCache) GetProduct(_ context.Context, id int64) (*domain.Product, bool, error) {
	p, ok := f.products[id]
	return p, ok, nil
}

func (f *fakeCache) ProductVersion(_ context.Context, id int64) (int64, error) {
	return f.productGen[id], nil
}

func (f *fakeCache) SetProduct(_ context.Context, product *domain.Product, version int64) error {
	if f.productGen[product.ID] != version {
		return nil
	}
	cp := *product
	f.products[product.ID] = &cp
	return nil
}

func (f *fakeCache) DeleteProducts(_ context.Context, ids []int64) error {
	for _, id := range ids {
		delete(f.products, id)
		f.productGen[id]++
	}
	f.deletedIDs = append(f.deletedIDs, ids...)
	return nil
}

func (f *fakeCache) GetCategories(_ context.Context) ([]string, bool, error) {
	return f.categories, f.hasCategories, nil
}

func (f *fakeCache) CategoriesVersion(_ context.Context) (int64, error) {
	return f.categoriesGen, nil
}

func (f *fakeCache) SetCategories(_ context.Context, categories []string, version int64) error {
	if f.categoriesGen != version {
		return nil
	}
	f.categories = categories
	f.hasCategories = true
	return nil
}

func (f *fakeCache) DeleteCategories(_ context.Context) error {
	f.categories = nil
	f.hasCategories = false
	f.categoryResets++
	f.categoriesGen++
	return nil
}

type fakeOutbox struct {
	events    []*OutboxEvent
	createErr error
}

func (f *fakeOutbox) Create(_ context.Context, event *OutboxEvent) (*OutboxEvent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	event.ID = int64(len(f.events) + 1)
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeOutbox) GetAndMarkAsProcessing(_ context.Context, _ int) ([]*OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutbox) MarkAsProcessed(_ context.Context, _ int64) error { return nil }

func (f *fakeOutbox) MarkAsPending(_ context.Context, _ int64) error { return nil }

func (f *fakeOutbox) MarkAsFailed(_ context.Context, _ int64) error { return nil }

func (f *fakeOutbox) ReleaseStale(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

type fakeEncoder struct{}

func (fakeEncoder) Encode(event *ProductEvent) ([]byte, error) {
	return []byte(string(event.Type)), nil
}

type fakeUserRepo struct {
	users  map[string]*domain.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, ok := f.users[user.Username]; ok {
		return nil, e.ErrUserExists
	}
	f.nextID++
	cp := *user
	cp.ID = f.nextID
	f.users[cp.Username] = &cp
	return &cp, nil
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	u, ok := f.users[username]
	if !ok {
		return nil, e.ErrUserNotFound
	}
	return u, nil
}

type fakeHasher struct{}

func (fakeHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (fakeHasher) Compare(hash, password string) error {
	if hash != "hashed:"+password {
		return e.ErrInvalidCredentials
	}
	return nil
}

// fakeTokens кодирует роль прямо в токен.
type fakeTokens struct{}

func (fakeTokens) Issue(user *domain.User) (string, error) {
	return "token:" + string(user.Role), nil
}

func (fakeTokens) Parse(token string) (*domain.Principal, error) {
	role, ok := strings.CutPrefix(token, "token:")
	if !ok {
		return nil, e.ErrInvalidToken
	}
	return &domain.Principal{UserID: 1, Role: domain.Role(role)}, nil
}

type fakeExporter struct{}

func (fakeExporter) XLSX(products []domain.Product) ([]byte, error) {
	return []byte("xlsx"), nil
}

func (fakeExporter) CSV(products []domain.Product) ([]byte, error) {
	return []byte("csv"), nil
}
