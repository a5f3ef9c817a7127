package pool_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/objectpool/pool"
)

var errCreateFailed = errors.New("create failed")

// resource is the pooled type used throughout the tests: a pointer so that
// two instances are never equal by value, matching the identity-keyed
// lookup the pool relies on.
type resource struct {
	id int64
}

// fakeManager is a configurable pool.Manager[*resource] for tests: it can be
// told to fail creation or validation on demand, and counts every call.
type fakeManager struct {
	mu sync.Mutex

	nextID int64

	createErr     error
	createFailFor int // number of remaining Create calls that should fail
	invalidIDs    map[int64]bool

	createCount  int
	validateCnt  int
	invalidCount int
	invalidated  []int64
}

func newFakeManager() *fakeManager {
	return &fakeManager{invalidIDs: make(map[int64]bool)}
}

func (m *fakeManager) Create() (*resource, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createCount++

	if m.createFailFor > 0 {
		m.createFailFor--

		return nil, errCreateFailed
	}

	m.nextID++

	return &resource{id: m.nextID}, nil
}

func (m *fakeManager) Validate(obj *pool.PooledObject[*resource]) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.validateCnt++

	if m.invalidIDs[obj.Object().id] {
		return false, nil
	}

	return true, nil
}

func (m *fakeManager) Invalid(obj *pool.PooledObject[*resource]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidCount++
	m.invalidated = append(m.invalidated, obj.Object().id)

	return nil
}

func (m *fakeManager) markInvalid(id int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.invalidIDs[id] = true
}

func baseConfig() pool.Config {
	return pool.Config{
		MaxPoolSize:      2,
		PollTimeout:      -1,
		CreateRetryCount: 0,
		IdleTimeout:      -1,
		ValidateOnBorrow: false,
		ValidateOnReturn: false,
	}
}

// Scenario 1: single borrow/return round-trips the same identity.
func TestBorrowReturn_SameIdentityRoundTrips(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 2

	p := pool.New[*resource]("t1", mgr, cfg)

	a, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, a)

	require.NoError(t, p.Return(a))

	a2, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, a, a2)

	stats := p.Stats()
	assert.EqualValues(t, 1, stats.CreatedCount)
	assert.EqualValues(t, 2, stats.BorrowedCount)
	assert.EqualValues(t, 1, stats.ReturnedCount)
}

// Scenario 2: saturation with a positive PollTimeout fails after roughly
// that duration.
func TestBorrow_SaturationTimesOut(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 1
	cfg.PollTimeout = 100 * time.Millisecond

	p := pool.New[*resource]("t2", mgr, cfg)

	_, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)

	start := time.Now()
	_, ok, err = p.Borrow()
	elapsed := time.Since(start)

	require.ErrorIs(t, err, pool.ErrPollTimeout)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
}

// Scenario 3: a blocked borrower is released once the sole object is
// returned by another goroutine.
func TestBorrow_SaturationReleasedByReturn(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 1
	cfg.PollTimeout = time.Second

	p := pool.New[*resource]("t3", mgr, cfg)

	a, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = p.Return(a)
	}()

	start := time.Now()
	b, ok, err := p.Borrow()
	elapsed := time.Since(start)

	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, a, b)
	assert.Less(t, elapsed, time.Second)
}

// Scenario 4: a non-blocking Borrow on a saturated pool returns the
// null-sentinel (ok == false, err == nil) rather than failing.
func TestBorrow_NonBlockingMiss(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 1
	cfg.PollTimeout = 0

	p := pool.New[*resource]("t4", mgr, cfg)

	_, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)

	obj, ok, err := p.Borrow()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, obj)
}

// Scenario 5: an object idle past idleTimeout is evicted, and the next
// borrow creates a fresh object with a different identity.
func TestIdleEviction(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 2
	cfg.IdleTimeout = 200 * time.Millisecond

	p := pool.New[*resource]("t5", mgr, cfg)

	a, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, p.Return(a))

	require.Eventually(t, func() bool {
		return p.Stats().PoolSize == 0
	}, time.Second, 10*time.Millisecond)

	assert.EqualValues(t, 1, p.Stats().InvalidCount)

	b, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotSame(t, a, b)
}

// Scenario 6: a candidate failing Manager.Validate on borrow is silently
// discarded and replaced by a freshly created object.
func TestValidateOnBorrow_RejectsStale(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 2
	cfg.ValidateOnBorrow = true

	p := pool.New[*resource]("t6", mgr, cfg)

	a, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, p.Return(a))

	mgr.markInvalid(a.id)

	b, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotSame(t, a, b)
	assert.EqualValues(t, 1, p.Stats().InvalidCount)
}

// Scenario 7: returning the same object twice is rejected.
func TestReturn_DoubleReturnRejected(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	p := pool.New[*resource]("t7", mgr, baseConfig())

	a, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.Return(a))
	require.ErrorIs(t, p.Return(a), pool.ErrDoubleReturn)
}

// Scenario 8: Close drains idle objects but leaves borrowers in flight
// alone; their eventual return still invalidates the object.
func TestClose_DrainsIdleSurvivesBorrowers(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 2

	p := pool.New[*resource]("t8", mgr, cfg)

	a, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)

	b, ok, err := p.Borrow()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, p.Return(a))

	require.NoError(t, p.Close())
	require.NoError(t, p.Close()) // idempotent

	assert.Contains(t, mgr.invalidated, a.id)
	assert.NotContains(t, mgr.invalidated, b.id)

	require.NoError(t, p.Return(b))
	assert.Contains(t, mgr.invalidated, b.id)
}

// Return rejects objects the pool never created.
func TestReturn_UnknownIdentity(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	p := pool.New[*resource]("t9", mgr, baseConfig())

	foreign := &resource{id: -1}
	require.ErrorIs(t, p.Return(foreign), pool.ErrNotInPool)
}

// Borrow fails with PoolCreateFailed once Manager.Create exhausts its
// retries.
func TestBorrow_CreateFailsExhaustsRetries(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	mgr.createFailFor = 3 // 1 initial attempt + 2 retries, all fail

	cfg := baseConfig()
	cfg.CreateRetryCount = 2

	p := pool.New[*resource]("t10", mgr, cfg)

	_, ok, err := p.Borrow()
	require.ErrorIs(t, err, pool.ErrCreateFailed)
	assert.False(t, ok)
}

// Borrow fails immediately once the pool is closed.
func TestBorrow_AfterClose(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	p := pool.New[*resource]("t11", mgr, baseConfig())

	require.NoError(t, p.Close())

	_, ok, err := p.Borrow()
	require.ErrorIs(t, err, pool.ErrPoolClosed)
	assert.False(t, ok)
}

// Concurrent borrow/return never overshoots createdCnt beyond maxPoolSize.
func TestConcurrentBorrowReturn_NeverOvershootsCapacity(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	cfg := baseConfig()
	cfg.MaxPoolSize = 4
	cfg.PollTimeout = time.Second

	p := pool.New[*resource]("t12", mgr, cfg)

	var wg sync.WaitGroup

	var borrows atomic.Int64

	for i := 0; i < 20; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 10; j++ {
				obj, ok, err := p.Borrow()
				if err != nil || !ok {
					continue
				}

				borrows.Add(1)
				time.Sleep(time.Millisecond)
				_ = p.Return(obj)
			}
		}()
	}

	wg.Wait()

	assert.LessOrEqual(t, p.Stats().CreatedCount, int64(cfg.MaxPoolSize))
	assert.Positive(t, borrows.Load())
}

func TestDebugInfo_IsValidJSON(t *testing.T) {
	t.Parallel()

	mgr := newFakeManager()
	p := pool.New[*resource]("t13", mgr, baseConfig())

	info := p.DebugInfo()
	assert.Contains(t, info, "\"name\"")
	assert.Contains(t, info, "t13")
}
