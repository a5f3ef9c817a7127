package pool_test

import (
	"fmt"
	"net"
	"time"

	"github.com/amp-labs/objectpool/pool"
)

// connManager implements pool.Manager[net.Conn] for a toy TCP pool. Real
// implementations typically wrap a database driver or RPC client instead.
type connManager struct {
	dial func() (net.Conn, error)
}

func (m connManager) Create() (net.Conn, error) {
	return m.dial()
}

func (m connManager) Validate(obj *pool.PooledObject[net.Conn]) (bool, error) {
	return obj.IsValid(), nil
}

func (m connManager) Invalid(obj *pool.PooledObject[net.Conn]) error {
	return obj.Object().Close()
}

func Example() {
	manager := connManager{dial: func() (net.Conn, error) {
		return nil, fmt.Errorf("dial not implemented in this example")
	}}

	p := pool.New[net.Conn]("example-conns", manager, pool.Config{
		MaxPoolSize:      10,
		PollTimeout:      5 * time.Second,
		CreateRetryCount: 1,
		IdleTimeout:      30 * time.Second,
		ValidateOnBorrow: true,
	})
	defer p.Close()

	// Scoped-acquisition usage:
	//
	//	po, ok, err := p.BorrowObject()
	//	if err != nil { ... }
	//	defer po.Close()
	//	use(po.Object())

	fmt.Println(p.Stats().PoolSize)
	// Output: 0
}
