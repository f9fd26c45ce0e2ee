package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	appctx "formdesk/internal/core/context"
	"formdesk/internal/core/notice"
	"formdesk/pkg/logger"
)

// Source fetches reference data from the backend.
type Source interface {
	ListProducts(ctx context.Context) ([]Product, error)
	ListCustomers(ctx context.Context) ([]Customer, error)
	ListProjects(ctx context.Context) ([]Project, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
	ListWarehouses(ctx context.Context) ([]Warehouse, error)
	ListWorkOrders(ctx context.Context) ([]WorkOrder, error)
	ListParentRequests(ctx context.Context, filter ParentFilter) ([]ParentRequest, error)
	EmployeeByEmail(ctx context.Context, email string) (Employee, error)
	CreateProduct(ctx context.Context, input NewProduct) (Product, error)
}

// StockQuery identifies a stock lookup.
type StockQuery struct {
	ProductID   string
	WarehouseID string
	Detail      bool
}

// StockSource looks up current stock levels.
type StockSource interface {
	LatestStock(ctx context.Context, q StockQuery) (StockLevel, error)
}

// ParentFilter narrows parent purchase request candidates.
type ParentFilter struct {
	Status string
	Type   string
	Limit  int
}

// SnapshotStore is an optional shared cache of encoded reference lists.
// Invalidate drops the shared snapshot of kind and tells other instances
// to expire their local copy.
type SnapshotStore interface {
	Get(ctx context.Context, kind Kind) ([]byte, bool, error)
	Put(ctx context.Context, kind Kind, data []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, kind Kind) error
}

// RegistryConfig configures the registry.
type RegistryConfig struct {
	TTL          time.Duration
	FetchTimeout time.Duration
	Parents      ParentFilter
}

// DefaultRegistryConfig returns defaults used when fields are zero.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		TTL:          5 * time.Minute,
		FetchTimeout: 15 * time.Second,
		Parents:      ParentFilter{Status: "COMPLETED", Limit: 100},
	}
}

// Registry owns the reference caches shared by all drafts.
type Registry struct {
	source    Source
	snapshots SnapshotStore
	cfg       RegistryConfig
	group     singleflight.Group
	now       func() time.Time

	products   *Cache[Product]
	customers  *Cache[Customer]
	projects   *Cache[Project]
	employees  *Cache[Employee]
	warehouses *Cache[Warehouse]
	workOrders *Cache[WorkOrder]
	parents    *Cache[ParentRequest]
}

// NewRegistry creates a registry. snapshots may be nil.
func NewRegistry(source Source, snapshots SnapshotStore, cfg RegistryConfig) *Registry {
	def := DefaultRegistryConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = def.FetchTimeout
	}
	if cfg.Parents.Limit <= 0 {
		cfg.Parents.Limit = def.Parents.Limit
	}
	return &Registry{
		source:     source,
		snapshots:  snapshots,
		cfg:        cfg,
		now:        time.Now,
		products:   NewCache[Product](),
		customers:  NewCache[Customer](),
		projects:   NewCache[Project](),
		employees:  NewCache[Employee](),
		warehouses: NewCache[Warehouse](),
		workOrders: NewCache[WorkOrder](),
		parents:    NewCache[ParentRequest](),
	}
}

// Products returns the product cache.
func (r *Registry) Products() *Cache[Product] { return r.products }

// Parents returns the parent request cache.
func (r *Registry) Parents() *Cache[ParentRequest] { return r.parents }

// WorkOrders returns the SPK cache.
func (r *Registry) WorkOrders() *Cache[WorkOrder] { return r.workOrders }

// Product looks up a product by id.
func (r *Registry) Product(productID string) (Product, bool) {
	return r.products.Get(productID)
}

// ParentRequest looks up a parent request candidate by id.
func (r *Registry) ParentRequest(parentID string) (ParentRequest, bool) {
	return r.parents.Get(parentID)
}

// Load returns the entries of kind, fetching them if the cache is stale.
// A failed fetch is never returned as an error: the last good snapshot (or an
// empty list) comes back with a warning notice.
func (r *Registry) Load(ctx context.Context, kind Kind) (any, *notice.Notice) {
	switch kind {
	case KindProducts:
		return load(ctx, r, kind, r.products, r.source.ListProducts)
	case KindCustomers:
		return load(ctx, r, kind, r.customers, r.source.ListCustomers)
	case KindProjects:
		return load(ctx, r, kind, r.projects, r.source.ListProjects)
	case KindEmployees:
		return load(ctx, r, kind, r.employees, r.source.ListEmployees)
	case KindWarehouses:
		return load(ctx, r, kind, r.warehouses, r.source.ListWarehouses)
	case KindWorkOrders:
		return load(ctx, r, kind, r.workOrders, r.source.ListWorkOrders)
	case KindParentRequests:
		return load(ctx, r, kind, r.parents, func(ctx context.Context) ([]ParentRequest, error) {
			return r.source.ListParentRequests(ctx, r.cfg.Parents)
		})
	default:
		n := notice.Warning(fmt.Sprintf("unknown reference data %q", kind))
		return []any{}, &n
	}
}

// Warm loads kinds and collects any notices.
func (r *Registry) Warm(ctx context.Context, kinds ...Kind) []notice.Notice {
	var notices []notice.Notice
	for _, k := range kinds {
		if _, n := r.Load(ctx, k); n != nil {
			notices = append(notices, *n)
		}
	}
	return notices
}

// CurrentEmployee resolves the employee record of the signed-in user.
// Failure yields an empty employee and a notice.
func (r *Registry) CurrentEmployee(ctx context.Context, email string) (Employee, *notice.Notice) {
	if email == "" {
		return Employee{}, nil
	}
	if cached, ok := r.employeeByEmail(email); ok {
		return cached, nil
	}
	emp, err := r.source.EmployeeByEmail(ctx, email)
	if err != nil {
		logger.Warn(ctx, "employee lookup failed", "email", email, "error", err)
		n := notice.Warning("Employee data for the signed-in user could not be loaded")
		return Employee{}, &n
	}
	r.employees.Upsert(emp)
	return emp, nil
}

func (r *Registry) employeeByEmail(email string) (Employee, bool) {
	for _, e := range r.employees.All() {
		if e.Email != "" && e.Email == email {
			return e, true
		}
	}
	return Employee{}, false
}

// CreateProduct creates a product on the backend and appends it to the cache.
func (r *Registry) CreateProduct(ctx context.Context, input NewProduct) (Product, error) {
	input.Normalize()
	p, err := r.source.CreateProduct(ctx, input)
	if err != nil {
		return Product{}, err
	}
	r.products.Upsert(p)
	if r.snapshots != nil {
		if err := r.snapshots.Invalidate(ctx, KindProducts); err != nil {
			logger.Warn(ctx, "product snapshot invalidation failed", "error", err)
		}
	}
	logger.Info(ctx, "product created inline", "product_id", p.ID, "name", p.Name)
	return p, nil
}

// Invalidate expires the local cache of kind; entries stay readable until
// the next load replaces them.
func (r *Registry) Invalidate(kind Kind) {
	switch kind {
	case KindProducts:
		r.products.Expire()
	case KindCustomers:
		r.customers.Expire()
	case KindProjects:
		r.projects.Expire()
	case KindEmployees:
		r.employees.Expire()
	case KindWarehouses:
		r.warehouses.Expire()
	case KindWorkOrders:
		r.workOrders.Expire()
	case KindParentRequests:
		r.parents.Expire()
	}
}

func load[T Identifiable](
	ctx context.Context,
	r *Registry,
	kind Kind,
	cache *Cache[T],
	fetch func(context.Context) ([]T, error),
) ([]T, *notice.Notice) {
	if cache.Fresh(r.now(), r.cfg.TTL) {
		return cache.All(), nil
	}

	ch := r.group.DoChan(string(kind), func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller.
		fctx, cancel := context.WithTimeout(appctx.Detach(ctx), r.cfg.FetchTimeout)
		defer cancel()
		return nil, refresh(fctx, r, kind, cache, fetch)
	})

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case res := <-ch:
		err = res.Err
	}
	if err != nil {
		logger.Warn(ctx, "reference data load failed", "kind", kind, "error", err)
		n := notice.Warning(fmt.Sprintf("Could not load %s; showing cached data", kind))
		return cache.All(), &n
	}
	return cache.All(), nil
}

func refresh[T Identifiable](
	ctx context.Context,
	r *Registry,
	kind Kind,
	cache *Cache[T],
	fetch func(context.Context) ([]T, error),
) error {
	if r.snapshots != nil {
		if data, ok, err := r.snapshots.Get(ctx, kind); err != nil {
			logger.Debug(ctx, "snapshot read failed", "kind", kind, "error", err)
		} else if ok {
			var items []T
			if err := json.Unmarshal(data, &items); err == nil {
				cache.Replace(items, r.now())
				return nil
			}
		}
	}

	items, err := fetch(ctx)
	if err != nil {
		return err
	}
	cache.Replace(items, r.now())

	if r.snapshots != nil {
		if data, err := json.Marshal(items); err == nil {
			if err := r.snapshots.Put(ctx, kind, data, r.cfg.TTL); err != nil {
				logger.Debug(ctx, "snapshot write failed", "kind", kind, "error", err)
			}
		}
	}
	return nil
}
