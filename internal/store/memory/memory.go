package memory

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"belanjakita/backend/internal/domain"
	"belanjakita/backend/internal/store"
	"belanjakita/backend/internal/xid"
)

// Store is the map-backed Repository used for dev mode and tests. The
// single RWMutex protects map structure only; logical serialization per
// aggregate is the service's job via the lock registry.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	users           map[string]domain.User
	coupons         map[string]domain.Coupon
	userCoupons     map[string]domain.UserCoupon
	userCouponByKey map[string]string // userID + "|" + couponID -> UserCoupon.ID
	points          map[string]domain.Point
	pointIDsByUser  map[string][]string // insertion order = creation order
	pointUsage      map[string]domain.PointUsageHistory
	usageByOrder    map[string][]string
	orders          map[string]domain.Order
	orderItems      map[string]domain.OrderItem
	itemsByOrder    map[string][]string
	payments        map[string]domain.Payment
	carts           map[string]domain.Cart
	accounts        map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		users:           make(map[string]domain.User),
		coupons:         make(map[string]domain.Coupon),
		userCoupons:     make(map[string]domain.UserCoupon),
		userCouponByKey: make(map[string]string),
		points:          make(map[string]domain.Point),
		pointIDsByUser:  make(map[string][]string),
		pointUsage:      make(map[string]domain.PointUsageHistory),
		usageByOrder:    make(map[string][]string),
		orders:          make(map[string]domain.Order),
		orderItems:      make(map[string]domain.OrderItem),
		itemsByOrder:    make(map[string][]string),
		payments:        make(map[string]domain.Payment),
		carts:           make(map[string]domain.Cart),
		accounts:        make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store preloaded with demo catalog data, a shopper,
// and API accounts for dev mode.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, p := range []domain.Product{
		{ID: "prd-keyboard", CategoryID: "cat-electronics", Name: "Mechanical Keyboard", PriceCents: 65_000, Stock: 40, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prd-mouse", CategoryID: "cat-electronics", Name: "Wireless Mouse", PriceCents: 28_000, Stock: 60, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prd-monitor", CategoryID: "cat-electronics", Name: "27in Monitor", PriceCents: 180_000, Stock: 15, Active: true, MinOrderQty: 1, MaxOrderQty: 2, CreatedAt: now, UpdatedAt: now},
		{ID: "prd-tumbler", CategoryID: "cat-living", Name: "Steel Tumbler", PriceCents: 12_000, Stock: 120, Active: true, CreatedAt: now, UpdatedAt: now},
		{ID: "prd-notebook", CategoryID: "cat-stationery", Name: "Dotted Notebook", PriceCents: 6_500, Stock: 200, Active: true, CreatedAt: now, UpdatedAt: now},
	} {
		s.products[p.ID] = p
	}

	s.users["usr-demo"] = domain.User{ID: "usr-demo", Name: "Demo Shopper", CreatedAt: now}

	s.coupons["cpn-welcome"] = domain.Coupon{
		ID: "cpn-welcome", Name: "Welcome 10%", Code: "WELCOME10",
		DiscountType: domain.DiscountPercentage, DiscountValue: 10,
		MaxDiscountCents: 10_000, TotalQuantity: 100, PerUserLimit: 1,
		StartAt: now.Add(-time.Hour), EndAt: now.Add(30 * 24 * time.Hour),
		Active: true, CreatedAt: now, UpdatedAt: now,
	}

	for username, hash := range seedAccounts() {
		s.accounts[username] = domain.UserAccount{
			Username: username, Password: hash.password, Role: hash.role,
			UserID: hash.userID, Active: true, CreatedAt: now,
		}
	}
	return s
}

type seedAccount struct {
	password string
	role     string
	userID   string
}

// seedAccounts reads dev credentials from SEED_ADMIN_PASSWORD and
// SEED_SHOPPER_PASSWORD, falling back to defaults with a warning. The
// seeded accounts only exist in memory mode.
func seedAccounts() map[string]seedAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	shopperPwd := envOr("SEED_SHOPPER_PASSWORD", "shopper123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SHOPPER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SHOPPER_PASSWORD to override.")
	}

	accounts := map[string]seedAccount{}
	for _, a := range []struct {
		username, password, role, userID string
	}{
		{"admin", adminPwd, "admin", ""},
		{"shopper", shopperPwd, "shopper", "usr-demo"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(a.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", a.username, err)
		}
		accounts[a.username] = seedAccount{password: string(hash), role: a.role, userID: a.userID}
	}
	return accounts
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ----- Products -----

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok || p.Deleted() {
		return nil, store.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *Store) CreateProduct(_ context.Context, p domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = xid.New("prd")
	}
	if _, exists := s.products[p.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.products[p.ID] = p
	cp := p
	return &cp, nil
}

func (s *Store) SaveProduct(_ context.Context, p domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.products[p.ID] = p
	return nil
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.Deleted() {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ----- Users -----

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := u
	return &cp, nil
}

func (s *Store) CreateUser(_ context.Context, u domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = xid.New("usr")
	}
	if _, exists := s.users[u.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.users[u.ID] = u
	cp := u
	return &cp, nil
}

func (s *Store) SaveUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	s.users[u.ID] = u
	return nil
}

// ----- Coupons -----

func (s *Store) GetCoupon(_ context.Context, id string) (*domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (s *Store) CreateCoupon(_ context.Context, c domain.Coupon) (*domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = xid.New("cpn")
	}
	if _, exists := s.coupons[c.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.coupons[c.ID] = c
	cp := c
	return &cp, nil
}

func (s *Store) SaveCoupon(_ context.Context, c domain.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.coupons[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.coupons[c.ID] = c
	return nil
}

func userCouponKey(userID, couponID string) string {
	return userID + "|" + couponID
}

func (s *Store) GetUserCoupon(_ context.Context, userID, couponID string) (*domain.UserCoupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.userCouponByKey[userCouponKey(userID, couponID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	uc := s.userCoupons[id]
	cp := uc
	return &cp, nil
}

// CreateUserCoupon enforces the (user, coupon) uniqueness constraint that
// backs the issuance double-check.
func (s *Store) CreateUserCoupon(_ context.Context, uc domain.UserCoupon) (*domain.UserCoupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userCouponKey(uc.UserID, uc.CouponID)
	if _, exists := s.userCouponByKey[key]; exists {
		return nil, store.ErrDuplicate
	}
	if uc.ID == "" {
		uc.ID = xid.New("ucp")
	}
	s.userCoupons[uc.ID] = uc
	s.userCouponByKey[key] = uc.ID
	cp := uc
	return &cp, nil
}

func (s *Store) SaveUserCoupon(_ context.Context, uc domain.UserCoupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.userCoupons[uc.ID]; !ok {
		return store.ErrNotFound
	}
	s.userCoupons[uc.ID] = uc
	return nil
}

// ----- Point ledger -----

func (s *Store) GetPoint(_ context.Context, id string) (*domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (s *Store) CreatePoint(_ context.Context, p domain.Point) (*domain.Point, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = xid.New("pnt")
	}
	if _, exists := s.points[p.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.points[p.ID] = p
	s.pointIDsByUser[p.UserID] = append(s.pointIDsByUser[p.UserID], p.ID)
	cp := p
	return &cp, nil
}

func (s *Store) SavePoint(_ context.Context, p domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.points[p.ID]; !ok {
		return store.ErrNotFound
	}
	s.points[p.ID] = p
	return nil
}

func (s *Store) ListPointsByUser(_ context.Context, userID string) ([]domain.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.pointIDsByUser[userID]
	out := make([]domain.Point, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.points[id])
	}
	// Insertion order already matches creation order; make it explicit for
	// callers that depend on FIFO.
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) GetPointUsage(_ context.Context, id string) (*domain.PointUsageHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.pointUsage[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := h
	return &cp, nil
}

func (s *Store) CreatePointUsage(_ context.Context, h domain.PointUsageHistory) (*domain.PointUsageHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.ID == "" {
		h.ID = xid.New("puh")
	}
	if _, exists := s.pointUsage[h.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.pointUsage[h.ID] = h
	s.usageByOrder[h.OrderID] = append(s.usageByOrder[h.OrderID], h.ID)
	cp := h
	return &cp, nil
}

func (s *Store) SavePointUsage(_ context.Context, h domain.PointUsageHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pointUsage[h.ID]; !ok {
		return store.ErrNotFound
	}
	s.pointUsage[h.ID] = h
	return nil
}

func (s *Store) ListActivePointUsageByOrder(_ context.Context, orderID string) ([]domain.PointUsageHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.usageByOrder[orderID]
	out := make([]domain.PointUsageHistory, 0, len(ids))
	for _, id := range ids {
		h := s.pointUsage[id]
		if h.Canceled() {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// ----- Orders -----

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := o
	return &cp, nil
}

func (s *Store) CreateOrder(_ context.Context, o domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = xid.New("ord")
	}
	if _, exists := s.orders[o.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.orders[o.ID] = o
	cp := o
	return &cp, nil
}

func (s *Store) SaveOrder(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; !ok {
		return store.ErrNotFound
	}
	s.orders[o.ID] = o
	return nil
}

func (s *Store) CreateOrderItem(_ context.Context, i domain.OrderItem) (*domain.OrderItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = xid.New("oit")
	}
	if _, exists := s.orderItems[i.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.orderItems[i.ID] = i
	s.itemsByOrder[i.OrderID] = append(s.itemsByOrder[i.OrderID], i.ID)
	cp := i
	return &cp, nil
}

func (s *Store) SaveOrderItem(_ context.Context, i domain.OrderItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orderItems[i.ID]; !ok {
		return store.ErrNotFound
	}
	s.orderItems[i.ID] = i
	return nil
}

func (s *Store) ListOrderItems(_ context.Context, orderID string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.itemsByOrder[orderID]
	out := make([]domain.OrderItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.orderItems[id])
	}
	return out, nil
}

func (s *Store) ListOrdersByUser(_ context.Context, userID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range s.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// ----- Payments -----

func (s *Store) CreatePayment(_ context.Context, p domain.Payment) (*domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = xid.New("pay")
	}
	if _, exists := s.payments[p.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.payments[p.ID] = p
	cp := p
	return &cp, nil
}

// ----- Carts -----

func (s *Store) GetCartItem(_ context.Context, id string) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.carts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := c
	return &cp, nil
}

func (s *Store) CreateCartItem(_ context.Context, c domain.Cart) (*domain.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = xid.New("crt")
	}
	if _, exists := s.carts[c.ID]; exists {
		return nil, store.ErrDuplicate
	}
	s.carts[c.ID] = c
	cp := c
	return &cp, nil
}

func (s *Store) SaveCartItem(_ context.Context, c domain.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[c.ID]; !ok {
		return store.ErrNotFound
	}
	s.carts[c.ID] = c
	return nil
}

func (s *Store) DeleteCartItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.carts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.carts, id)
	return nil
}

func (s *Store) ListCartByUser(_ context.Context, userID string) ([]domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Cart, 0)
	for _, c := range s.carts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ----- API accounts -----

func (s *Store) GetAccount(_ context.Context, username string) (*domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[username]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := a
	return &cp, nil
}

func (s *Store) CreateAccount(_ context.Context, a domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[a.Username]; exists {
		return store.ErrDuplicate
	}
	s.accounts[a.Username] = a
	return nil
}
