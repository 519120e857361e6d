// Package scanner is the intake path for hardware barcode scanners. Scanned
// codes flow over a channel to a single consumer goroutine that stages them
// on the cart; producers never touch cart state directly.
package scanner

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"

	"smartstore/pos/internal/cart"
	"smartstore/pos/internal/domain"
	"smartstore/pos/internal/sale"
)

var ErrClosed = errors.New("scan session closed")

// Result reports the outcome of one scanned code.
type Result struct {
	Code    string
	Product domain.Product
	Err     error
}

// Session owns the code channel for one cart. Submit is safe for concurrent
// producers; consumption is serialized so cart mutation stays single-threaded.
type Session struct {
	ID      string
	service *sale.Service
	cart    *cart.Cart

	codes   chan string
	results chan Result

	closeOnce sync.Once
	done      chan struct{}
}

func NewSession(service *sale.Service, c *cart.Cart, buffer int) *Session {
	if buffer < 1 {
		buffer = 16
	}
	return &Session{
		ID:      uuid.NewString(),
		service: service,
		cart:    c,
		codes:   make(chan string, buffer),
		results: make(chan Result, buffer),
		done:    make(chan struct{}),
	}
}

// Results is the consumer-facing stream; closed when the session ends.
func (s *Session) Results() <-chan Result {
	return s.results
}

// Submit queues a scanned code. It never blocks a hardware read loop: a full
// buffer or a closed session drops the code with an error.
func (s *Session) Submit(code string) error {
	select {
	case <-s.done:
		return ErrClosed
	default:
	}

	select {
	case s.codes <- code:
		return nil
	case <-s.done:
		return ErrClosed
	default:
		return errors.New("scan buffer full")
	}
}

// Run consumes codes until the context is cancelled or Close is called.
// Each code goes through the same lookup and validation as manual entry.
func (s *Session) Run(ctx context.Context) {
	defer close(s.results)

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case code, ok := <-s.codes:
			if !ok {
				return
			}
			product, err := s.service.AddByBarcode(ctx, s.cart, code, 1)
			if err != nil {
				log.Printf("[scanner] WARN: session %s rejected code %q: %v", s.ID, code, err)
			}
			select {
			case s.results <- Result{Code: code, Product: product, Err: err}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
