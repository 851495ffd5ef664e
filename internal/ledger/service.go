// Package ledger is the posting engine: the only writer of journal entries,
// journal lines, reversal links and posting runs. Callers reach the ledger
// exclusively through the operations exposed here.
package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/atlas-erp/atlas-erp/internal/shared"
)

// EntityTransactionSet is the gate/audit entity type for workflow containers.
const EntityTransactionSet = "transaction_set"

// AuditPort receives append-only audit events. Emission is fire-and-forget
// from the engine's perspective.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts posting outcomes. Implementations must be safe for nil
// receivers not to matter: the service guards every call.
type MetricsPort interface {
	ObservePosting(path, outcome string)
	ObserveGateRejection(gate string)
	ObserveReversal(outcome string)
}

// AccountDefaults carries the account codes the domain adapters post against.
// Every field can be overridden per call; empty Inventory/Expense codes make
// the purchase adapter fail loudly instead of dropping value.
type AccountDefaults struct {
	AR        string
	AP        string
	Revenue   string
	COGS      string
	Inventory string
	Expense   string
	Cash      string
	Bank      string
}

// DefaultAccounts returns the fixed fallback codes.
func DefaultAccounts() AccountDefaults {
	return AccountDefaults{
		AR:        "1100",
		AP:        "2000",
		Revenue:   "4000",
		COGS:      "5100",
		Inventory: "1300",
		Expense:   "6000",
		Cash:      "1010",
		Bank:      "1020",
	}
}

// merge overlays non-empty override codes onto the base defaults.
func (d AccountDefaults) merge(override AccountDefaults) AccountDefaults {
	out := d
	if override.AR != "" {
		out.AR = override.AR
	}
	if override.AP != "" {
		out.AP = override.AP
	}
	if override.Revenue != "" {
		out.Revenue = override.Revenue
	}
	if override.COGS != "" {
		out.COGS = override.COGS
	}
	if override.Inventory != "" {
		out.Inventory = override.Inventory
	}
	if override.Expense != "" {
		out.Expense = override.Expense
	}
	if override.Cash != "" {
		out.Cash = override.Cash
	}
	if override.Bank != "" {
		out.Bank = override.Bank
	}
	return out
}

// PostOptions tunes a single adapter posting call.
type PostOptions struct {
	Accounts    AccountDefaults
	PostingDate *time.Time
	Memo        string
}

// PostResult is the outcome of a posting operation.
type PostResult struct {
	JournalEntryID int64
	Idempotent     bool
}

// ReverseResult is the outcome of a reversal.
type ReverseResult struct {
	ReversalJournalEntryID int64
	Idempotent             bool
}

// VoidResult is the outcome of a payment void.
type VoidResult struct {
	Status                 DocStatus
	ReversalJournalEntryID int64
	Idempotent             bool
}

// Service exposes the posting engine operations.
type Service struct {
	repo     Repository
	runs     *runTracker
	audit    AuditPort
	metrics  MetricsPort
	logger   *slog.Logger
	defaults AccountDefaults
	now      func() time.Time
}

// NewService constructs the engine.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		runs:     &runTracker{repo: repo, logger: logger},
		audit:    audit,
		logger:   logger,
		defaults: DefaultAccounts(),
		now:      time.Now,
	}
}

// WithNow overrides the clock, primarily for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches posting metrics.
func (s *Service) WithMetrics(metrics MetricsPort) {
	s.metrics = metrics
}

// WithAccountDefaults replaces the fallback account codes.
func (s *Service) WithAccountDefaults(defaults AccountDefaults) {
	s.defaults = DefaultAccounts().merge(defaults)
}

func (s *Service) emitAudit(ctx context.Context, log shared.AuditLog) {
	if s.audit == nil {
		return
	}
	if log.At.IsZero() {
		log.At = s.now()
	}
	if err := s.audit.Record(ctx, log); err != nil && s.logger != nil {
		s.logger.Warn("audit emit", slog.String("action", log.Action), slog.Any("error", err))
	}
}

func (s *Service) observePosting(path, outcome string) {
	if s.metrics != nil {
		s.metrics.ObservePosting(path, outcome)
	}
}

func (s *Service) observeGateRejection(gate string) {
	if s.metrics != nil {
		s.metrics.ObserveGateRejection(gate)
	}
}

func (s *Service) observeReversal(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveReversal(outcome)
	}
}
