package sqlmap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Opener creates physical connections. *sql.DB implements it: each Conn call
// on a *sql.DB whose connections are never handed back opens a new session.
type Opener interface {
	Conn(ctx context.Context) (*sql.Conn, error)
	Close() error
}

// Pool hands out wrapped connections and takes them back when the caller
// closes them. It exclusively owns every physical connection it opened.
//
// Growth is unbounded and Get never waits for another caller's release: with
// no idle connection available a new physical connection is opened.
type Pool struct {
	opener Opener
	log    *slog.Logger

	mu     sync.Mutex
	idle   []*Conn
	open   int
	closed bool

	seq atomic.Uint64
}

// NewPool returns a pool opening physical connections through opener.
func NewPool(opener Opener, log *slog.Logger) *Pool {
	if log == nil {
		log = Logger()
	}
	return &Pool{opener: opener, log: log}
}

// OpenPool loads driverName once and returns a pool connecting to dsn.
func OpenPool(driverName, dsn string, log *slog.Logger) (*Pool, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlmap: open %s: %w", driverName, err)
	}
	// Connections live in Pool, not in database/sql's idle list.
	db.SetMaxIdleConns(0)
	return NewPool(db, log), nil
}

// Get returns an idle connection or opens a new one. The caller has custody
// of the connection until it calls Close on it.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		c := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		c.checkedOut = true
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	raw, err := p.opener.Conn(ctx)
	if err != nil {
		p.log.Error("sqlmap: open connection", "error", err)
		return nil, fmt.Errorf("sqlmap: open connection: %w", err)
	}

	c := &Conn{Conn: raw, pool: p, id: p.seq.Add(1), checkedOut: true}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = raw.Close()
		return nil, ErrPoolClosed
	}
	p.open++
	p.mu.Unlock()
	p.log.Debug("sqlmap: opened connection", "conn", c.id)
	return c, nil
}

// put returns c to the idle set. Connections of a closed pool are released.
func (p *Pool) put(c *Conn) {
	p.mu.Lock()
	if !c.checkedOut {
		p.mu.Unlock()
		return
	}
	c.checkedOut = false
	if p.closed {
		p.open--
		c.released = true
		p.mu.Unlock()
		_ = c.Conn.Close()
		return
	}
	p.idle = append(p.idle, c)
	p.mu.Unlock()
}

// discard forgets c and closes its physical connection.
func (p *Pool) discard(c *Conn) error {
	p.mu.Lock()
	if c.released {
		p.mu.Unlock()
		return nil
	}
	c.released = true
	if !c.checkedOut {
		for i, ic := range p.idle {
			if ic == c {
				p.idle = append(p.idle[:i], p.idle[i+1:]...)
				break
			}
		}
	}
	c.checkedOut = false
	p.open--
	p.mu.Unlock()
	return c.Conn.Close()
}

// PoolStats is a point-in-time view of a pool.
type PoolStats struct {
	Open  int
	Idle  int
	InUse int
}

// Stats reports how many connections are open, idle and checked out.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Open: p.open, Idle: len(p.idle), InUse: p.open - len(p.idle)}
}

// Close releases every idle connection and the opener. Connections still
// checked out are released when their holders close them.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	for _, c := range idle {
		c.released = true
	}
	p.mu.Unlock()

	var errs []error
	for _, c := range idle {
		if err := c.Conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := p.opener.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Conn is a physical connection checked out of a Pool. Every *sql.Conn
// method is forwarded unchanged except Close, which hands the connection
// back to the pool instead of closing it.
type Conn struct {
	*sql.Conn

	pool       *Pool
	id         uint64
	checkedOut bool // guarded by pool.mu
	released   bool // guarded by pool.mu
}

// ID identifies the physical connection for logging.
func (c *Conn) ID() uint64 { return c.id }

// Close returns the connection to its pool. Calling it more than once is a
// no-op.
func (c *Conn) Close() error {
	c.pool.put(c)
	return nil
}

// Release closes the underlying physical connection and removes it from the
// pool. Use it after the connection turned out to be broken.
func (c *Conn) Release() error {
	return c.pool.discard(c)
}
