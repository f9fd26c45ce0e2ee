package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/core/types"
)

type fakeSource struct {
	productCalls atomic.Int32
	parentCalls  atomic.Int32
	release      chan struct{}
	fail         atomic.Bool

	mu         sync.Mutex
	products   []Product
	parents    []ParentRequest
	lastFilter ParentFilter
	employee   Employee
}

func (f *fakeSource) ListProducts(ctx context.Context) ([]Product, error) {
	f.productCalls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail.Load() {
		return nil, errors.New("backend down")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Product(nil), f.products...), nil
}

func (f *fakeSource) ListCustomers(context.Context) ([]Customer, error) {
	return []Customer{{ID: "c1", Name: "PT Maju"}}, nil
}

func (f *fakeSource) ListProjects(context.Context) ([]Project, error) { return nil, nil }

func (f *fakeSource) ListEmployees(context.Context) ([]Employee, error) {
	return []Employee{f.employee}, nil
}

func (f *fakeSource) ListWarehouses(context.Context) ([]Warehouse, error) { return nil, nil }

func (f *fakeSource) ListWorkOrders(context.Context) ([]WorkOrder, error) { return nil, nil }

func (f *fakeSource) ListParentRequests(_ context.Context, filter ParentFilter) ([]ParentRequest, error) {
	f.parentCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	return f.parents, nil
}

func (f *fakeSource) EmployeeByEmail(_ context.Context, email string) (Employee, error) {
	if f.fail.Load() || email != f.employee.Email {
		return Employee{}, errors.New("not found")
	}
	return f.employee, nil
}

func (f *fakeSource) CreateProduct(_ context.Context, in NewProduct) (Product, error) {
	return Product{ID: "new-" + in.Name, Name: in.Name, Price: in.Price}, nil
}

type memSnapshots struct {
	mu          sync.Mutex
	data        map[Kind][]byte
	invalidated []Kind
}

func (m *memSnapshots) Invalidate(_ context.Context, kind Kind) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, kind)
	m.invalidated = append(m.invalidated, kind)
	return nil
}

func (m *memSnapshots) Get(_ context.Context, kind Kind) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[kind]
	return b, ok, nil
}

func (m *memSnapshots) Put(_ context.Context, kind Kind, data []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[Kind][]byte)
	}
	m.data[kind] = data
	return nil
}

func TestCache_UpsertIsAppendOnlyAndIdempotent(t *testing.T) {
	c := NewCache[Product]()
	c.Replace([]Product{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}, {ID: "a", Name: "dup"}, {ID: ""}}, time.Now())
	assert.Equal(t, 2, c.Len())

	assert.True(t, c.Upsert(Product{ID: "c", Name: "C"}))
	assert.False(t, c.Upsert(Product{ID: "a", Name: "changed"}))
	assert.False(t, c.Upsert(Product{}))

	got, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "A", got.Name)

	names := []string{}
	for _, p := range c.All() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestCache_Fresh(t *testing.T) {
	c := NewCache[Product]()
	now := time.Now()
	assert.False(t, c.Fresh(now, time.Minute))
	c.Replace(nil, now)
	assert.True(t, c.Fresh(now.Add(30*time.Second), time.Minute))
	assert.False(t, c.Fresh(now.Add(2*time.Minute), time.Minute))
}

func TestRegistry_LoadCachesWithinTTL(t *testing.T) {
	src := &fakeSource{products: []Product{{ID: "p1", Name: "Bolt", Price: types.Int(1500)}}}
	reg := NewRegistry(src, nil, RegistryConfig{TTL: time.Minute})
	now := time.Now()
	reg.now = func() time.Time { return now }

	items, n := reg.Load(context.Background(), KindProducts)
	assert.Nil(t, n)
	assert.Len(t, items, 1)

	_, _ = reg.Load(context.Background(), KindProducts)
	assert.Equal(t, int32(1), src.productCalls.Load())

	now = now.Add(2 * time.Minute)
	_, _ = reg.Load(context.Background(), KindProducts)
	assert.Equal(t, int32(2), src.productCalls.Load())
}

func TestRegistry_ConcurrentLoadsShareOneFetch(t *testing.T) {
	src := &fakeSource{
		products: []Product{{ID: "p1"}},
		release:  make(chan struct{}),
	}
	reg := NewRegistry(src, nil, RegistryConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			items, n := reg.Load(context.Background(), KindProducts)
			assert.Nil(t, n)
			assert.Len(t, items, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.productCalls.Load())
}

func TestRegistry_FailureFallsBackToLastSnapshot(t *testing.T) {
	src := &fakeSource{products: []Product{{ID: "p1"}}}
	reg := NewRegistry(src, nil, RegistryConfig{TTL: time.Minute})
	now := time.Now()
	reg.now = func() time.Time { return now }

	_, n := reg.Load(context.Background(), KindProducts)
	require.Nil(t, n)

	src.fail.Store(true)
	now = now.Add(time.Hour)
	items, n := reg.Load(context.Background(), KindProducts)
	require.NotNil(t, n)
	assert.Equal(t, "warning", string(n.Level))
	assert.Equal(t, []Product{{ID: "p1"}}, items)
}

func TestRegistry_FailureWithoutSnapshotReturnsEmpty(t *testing.T) {
	src := &fakeSource{}
	src.fail.Store(true)
	reg := NewRegistry(src, nil, RegistryConfig{})

	items, n := reg.Load(context.Background(), KindProducts)
	require.NotNil(t, n)
	assert.Empty(t, items)
}

func TestRegistry_CallerCancellationReturnsCache(t *testing.T) {
	src := &fakeSource{release: make(chan struct{})}
	defer close(src.release)
	reg := NewRegistry(src, nil, RegistryConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	items, n := reg.Load(ctx, KindProducts)
	require.NotNil(t, n)
	assert.Empty(t, items)
}

func TestRegistry_ParentRequestsUseConfiguredFilter(t *testing.T) {
	src := &fakeSource{parents: []ParentRequest{{
		ID: "pr-1", Number: "PR-001", Status: "COMPLETED",
		TotalBudget: types.Int(2_000_000), RemainingBudget: types.Int(1_000_000),
	}}}
	reg := NewRegistry(src, nil, RegistryConfig{Parents: ParentFilter{Status: "COMPLETED", Type: "PROJECT", Limit: 20}})

	_, n := reg.Load(context.Background(), KindParentRequests)
	require.Nil(t, n)
	assert.Equal(t, ParentFilter{Status: "COMPLETED", Type: "PROJECT", Limit: 20}, src.lastFilter)

	parent, ok := reg.ParentRequest("pr-1")
	require.True(t, ok)
	snap := parent.Snapshot()
	assert.True(t, snap.RemainingBudget.Equal(types.Int(1_000_000)))
}

func TestRegistry_SharedSnapshotSkipsBackend(t *testing.T) {
	store := &memSnapshots{}
	first := &fakeSource{products: []Product{{ID: "p1", Name: "Bolt"}}}
	_, n := NewRegistry(first, store, RegistryConfig{}).Load(context.Background(), KindProducts)
	require.Nil(t, n)
	require.Equal(t, int32(1), first.productCalls.Load())

	second := &fakeSource{}
	reg := NewRegistry(second, store, RegistryConfig{})
	items, n := reg.Load(context.Background(), KindProducts)
	require.Nil(t, n)
	assert.Equal(t, int32(0), second.productCalls.Load())
	got, ok := reg.Product("p1")
	require.True(t, ok)
	assert.Equal(t, "Bolt", got.Name)
	assert.Len(t, items, 1)
}

func TestRegistry_UnknownKind(t *testing.T) {
	reg := NewRegistry(&fakeSource{}, nil, RegistryConfig{})
	_, n := reg.Load(context.Background(), Kind("invoices"))
	assert.NotNil(t, n)

	_, ok := ParseKind("invoices")
	assert.False(t, ok)
	k, ok := ParseKind("spk")
	assert.True(t, ok)
	assert.Equal(t, KindWorkOrders, k)
}

func TestRegistry_CurrentEmployee(t *testing.T) {
	src := &fakeSource{employee: Employee{ID: "emp-1", Name: "Sari", Email: "sari@example.com"}}
	reg := NewRegistry(src, nil, RegistryConfig{})

	emp, n := reg.CurrentEmployee(context.Background(), "sari@example.com")
	assert.Nil(t, n)
	assert.Equal(t, "emp-1", emp.ID)

	emp, n = reg.CurrentEmployee(context.Background(), "ghost@example.com")
	assert.NotNil(t, n)
	assert.Empty(t, emp.ID)

	emp, n = reg.CurrentEmployee(context.Background(), "")
	assert.Nil(t, n)
	assert.Empty(t, emp.ID)
}

func TestRegistry_CreateProductAppendsToCache(t *testing.T) {
	src := &fakeSource{products: []Product{{ID: "p1"}}}
	reg := NewRegistry(src, nil, RegistryConfig{})
	_, _ = reg.Load(context.Background(), KindProducts)

	p, err := reg.CreateProduct(context.Background(), NewProduct{Name: "  Cable  ", Price: types.Int(9000)})
	require.NoError(t, err)
	assert.Equal(t, "new-Cable", p.ID)

	all := reg.Products().All()
	require.Len(t, all, 2)
	assert.Equal(t, "new-Cable", all[1].ID)
}

func TestRegistry_CreateProductInvalidatesSharedSnapshot(t *testing.T) {
	store := &memSnapshots{}
	src := &fakeSource{products: []Product{{ID: "p1"}}}
	reg := NewRegistry(src, store, RegistryConfig{})
	_, _ = reg.Load(context.Background(), KindProducts)

	_, err := reg.CreateProduct(context.Background(), NewProduct{Name: "Cable"})
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindProducts}, store.invalidated)
	assert.True(t, reg.Products().Fresh(time.Now(), time.Minute))
}

func TestRegistry_InvalidateForcesRefetch(t *testing.T) {
	src := &fakeSource{products: []Product{{ID: "p1"}}}
	reg := NewRegistry(src, nil, RegistryConfig{})
	_, _ = reg.Load(context.Background(), KindProducts)
	_, _ = reg.Load(context.Background(), KindProducts)
	require.EqualValues(t, 1, src.productCalls.Load())

	reg.Invalidate(KindProducts)
	assert.Equal(t, 1, reg.Products().Len())
	_, _ = reg.Load(context.Background(), KindProducts)
	assert.EqualValues(t, 2, src.productCalls.Load())
}
