// Package claim implements the trial key claim workflow: check eligibility,
// reserve a key, deliver it privately, then commit the assignment or return
// the key to the pool.
package claim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shampis/trialbot/internal/ledger"
)

// DefaultDeliveryTimeout bounds how long a delivery may take before the key is
// returned to the pool.
const DefaultDeliveryTimeout = 15 * time.Second

var (
	// ErrRecipientRefused indicates the platform refused to deliver a private
	// message to the claimant, typically because they disabled DMs.
	ErrRecipientRefused = errors.New("recipient refused private messages")

	// ErrDeliveryTimeout indicates the delivery did not finish in time.
	ErrDeliveryTimeout = errors.New("delivery timed out")
)

// Claimant is the account asking for a key.
type Claimant struct {
	// ID is the stable platform account id.
	ID string

	// Username is stored in the ledger as the account's name snapshot.
	Username string

	// DisplayName is used to greet the claimant in the delivered message.
	DisplayName string
}

func (c Claimant) name() string {
	if c.Username != "" {
		return c.Username
	}
	return c.DisplayName
}

// Delivery is what gets sent to the claimant.
type Delivery struct {
	Key         string
	DisplayName string
}

// Deliverer sends a key privately to an account. Implementations wrap a
// platform refusal in ErrRecipientRefused.
type Deliverer interface {
	DeliverKey(ctx context.Context, accountID string, d Delivery) error
}

// KeyPool is the part of the key pool store the workflow uses.
type KeyPool interface {
	Reserve() (string, bool)
	Return(key string)
}

// Ledger is the part of the assignment ledger the workflow uses.
type Ledger interface {
	Has(accountID string) bool
	Commit(accountID, username, key string) ledger.Record
}

// Observer is notified of every finished claim.
type Observer interface {
	ObserveClaim(outcome string, compensated bool, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveClaim(string, bool, time.Duration) {}

// Workflow runs claims. It is safe for concurrent use.
type Workflow struct {
	pool      KeyPool
	ledger    Ledger
	deliverer Deliverer

	logger   *slog.Logger
	observer Observer
	timeout  time.Duration

	mu      sync.Mutex
	pending map[string]struct{}
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workflow) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithDeliveryTimeout overrides DefaultDeliveryTimeout. Non-positive values
// are ignored.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(w *Workflow) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(w *Workflow) {
		if o != nil {
			w.observer = o
		}
	}
}

// New returns a Workflow over the given stores and deliverer.
func New(pool KeyPool, l Ledger, deliverer Deliverer, opts ...Option) *Workflow {
	w := &Workflow{
		pool:      pool,
		ledger:    l,
		deliverer: deliverer,
		logger:    slog.Default(),
		observer:  nopObserver{},
		timeout:   DefaultDeliveryTimeout,
		pending:   map[string]struct{}{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "claim")
	return w
}

// Claim runs one claim for c and returns its outcome. It never panics on
// delivery failures and never loses a reserved key: any failure after the
// reservation returns the key to the front of the pool.
func (w *Workflow) Claim(ctx context.Context, c Claimant) Outcome {
	start := time.Now()
	attempt := uuid.NewString()
	logger := w.logger.With("attempt", attempt, "account", c.ID)

	out := w.run(ctx, c, logger)
	out.AttemptID = attempt

	w.observer.ObserveClaim(out.Status.String(), out.Compensated(), time.Since(start))
	logger.Info("claim finished", "outcome", out.Status.String())
	return out
}

func (w *Workflow) run(ctx context.Context, c Claimant, logger *slog.Logger) Outcome {
	if !w.begin(c.ID) {
		return Outcome{Status: StatusClaimPending}
	}
	defer w.end(c.ID)

	if w.ledger.Has(c.ID) {
		return Outcome{Status: StatusAlreadyClaimed}
	}

	key, ok := w.pool.Reserve()
	if !ok {
		logger.Warn("no trial keys left")
		return Outcome{Status: StatusPoolExhausted}
	}

	if err := w.deliver(ctx, c, key, logger); err != nil {
		w.pool.Return(key)
		logger.Warn("delivery failed, key returned to pool", "error", err)
		return Outcome{Status: StatusDeliveryRefused, Key: key, Reason: err}
	}

	w.ledger.Commit(c.ID, c.name(), key)
	return Outcome{Status: StatusDelivered, Key: key}
}

// deliver sends the key, bounded by the workflow timeout. A deliverer that
// ignores its context is abandoned when the timeout fires.
func (w *Workflow) deliver(ctx context.Context, c Claimant, key string, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("delivery panicked: %v", r)
			}
		}()
		done <- w.deliverer.DeliverKey(ctx, c.ID, Delivery{Key: key, DisplayName: c.DisplayName})
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		select {
		case err := <-done:
			return err
		default:
		}
		go func() {
			if err := <-done; err == nil {
				logger.Error("delivery completed after timeout; key was already returned to the pool")
			}
		}()
		return fmt.Errorf("%w: %w", ErrDeliveryTimeout, ctx.Err())
	}
}

// begin marks accountID as mid-claim. It returns false if it already was.
func (w *Workflow) begin(accountID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.pending[accountID]; busy {
		return false
	}
	w.pending[accountID] = struct{}{}
	return true
}

func (w *Workflow) end(accountID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, accountID)
}
