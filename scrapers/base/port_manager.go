package base

import (
	"context"
	"fmt"
	"sync"
)

// PortPool hands out ChromeDriver ports so concurrent Selenium fetches do
// not collide
type PortPool struct {
	ports chan int
}

var (
	driverPorts *PortPool
	once        sync.Once
)

// DriverPorts returns the shared pool, 16 ports from 4444
func DriverPorts() *PortPool {
	once.Do(func() {
		driverPorts = NewPortPool(4444, 16)
	})
	return driverPorts
}

// NewPortPool creates a pool of size ports starting at basePort
func NewPortPool(basePort, size int) *PortPool {
	p := &PortPool{ports: make(chan int, size)}
	for i := 0; i < size; i++ {
		p.ports <- basePort + i
	}
	return p
}

// Acquire blocks until a port is free or ctx ends
func (p *PortPool) Acquire(ctx context.Context) (int, error) {
	select {
	case port := <-p.ports:
		return port, nil
	case <-ctx.Done():
		return 0, fmt.Errorf("no driver port available: %w", ctx.Err())
	}
}

// Release returns port to the pool
func (p *PortPool) Release(port int) {
	p.ports <- port
}
