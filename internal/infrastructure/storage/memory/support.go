package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	corenumerator "tillpoint/internal/core/numerator"
	"tillpoint/internal/domain"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/infrastructure/idempotency"
	"tillpoint/pkg/numerator"
)

func errNoTx(op string) error {
	return fmt.Errorf("%s requires transaction context", op)
}

// --- Outbox ---

// Outbox collects domain events inside store transactions.
type Outbox struct {
	s *Store
}

var _ domain.EventPublisher = (*Outbox)(nil)

// Outbox returns the event publisher.
func (s *Store) Outbox() *Outbox {
	return &Outbox{s: s}
}

// Publish records the event. MUST be called inside a transaction.
func (o *Outbox) Publish(ctx context.Context, event domain.DomainEvent) error {
	if !inTx(ctx) {
		return apperror.NewInternal(errNoTx("outbox publish"))
	}
	return o.s.update(ctx, func(st *state) error {
		st.outbox = append(st.outbox, event)
		return nil
	})
}

// Events returns the published events in order.
func (o *Outbox) Events() []domain.DomainEvent {
	var out []domain.DomainEvent
	o.s.view(context.Background(), func(st *state) {
		out = slices.Clone(st.outbox)
	})
	return out
}

// --- Audit ---

// AuditLog implements audit.Recorder.
type AuditLog struct {
	s     *Store
	clock domain.Clock
}

var _ audit.Recorder = (*AuditLog)(nil)

// Audit returns the audit recorder.
func (s *Store) Audit(clock domain.Clock) *AuditLog {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &AuditLog{s: s, clock: clock}
}

func (a *AuditLog) LogChange(ctx context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	data, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal audit changes: %w", err)
	}
	entry := audit.Entry{
		ID:         id.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		OperatorID: appctx.GetOperatorID(ctx),
		Changes:    data,
		CreatedAt:  a.clock(),
	}
	return a.s.update(ctx, func(st *state) error {
		st.audit = append(st.audit, entry)
		return nil
	})
}

// History returns entries for one entity, newest first.
func (a *AuditLog) History(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.Entry, error) {
	var out []audit.Entry
	a.s.view(ctx, func(st *state) {
		for i := len(st.audit) - 1; i >= 0; i-- {
			e := st.audit[i]
			if e.EntityType != entityType || e.EntityID != entityID {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				return
			}
		}
	})
	return out, nil
}

// --- Sequences ---

// Sequences implements numerator.Generator on store state, so numbers
// taken in a failed transaction are reused.
type Sequences struct {
	s *Store
}

var _ corenumerator.Generator = (*Sequences)(nil)

// Sequences returns the number generator. Options are ignored: every number is strict.
func (s *Store) Sequences() *Sequences {
	return &Sequences{s: s}
}

func (q *Sequences) GetNextNumber(ctx context.Context, cfg corenumerator.Config, _ *corenumerator.Options, period time.Time) (string, error) {
	key := numerator.SequenceKey(cfg, period)
	var next int64
	err := q.s.update(ctx, func(st *state) error {
		next = st.sequences[key] + 1
		st.sequences[key] = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return numerator.FormatNumber(cfg, period, next), nil
}

func (q *Sequences) SetNextNumber(ctx context.Context, cfg corenumerator.Config, period time.Time, value int64) error {
	key := numerator.SequenceKey(cfg, period)
	return q.s.update(ctx, func(st *state) error {
		st.sequences[key] = value
		return nil
	})
}

// --- Idempotency ---

type idempotencyRecord struct {
	operatorID  string
	operation   string
	requestHash string
	status      idempotency.Status
	statusCode  int
	contentType string
	response    []byte
	updatedAt   time.Time
	expiresAt   time.Time
}

// IdempotencyStore implements idempotency.Store.
type IdempotencyStore struct {
	s     *Store
	ttl   time.Duration
	clock domain.Clock
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// Idempotency returns an idempotency store whose keys expire after ttl.
func (s *Store) Idempotency(ttl time.Duration, clock domain.Clock) *IdempotencyStore {
	if clock == nil {
		clock = domain.SystemClock
	}
	return &IdempotencyStore{s: s, ttl: ttl, clock: clock}
}

func (i *IdempotencyStore) AcquireKey(ctx context.Context, key, operatorID, operation, requestHash string) (*idempotency.Replay, error) {
	now := i.clock()
	var replay *idempotency.Replay
	err := i.s.update(ctx, func(st *state) error {
		rec, ok := st.idem[key]
		if !ok || now.After(rec.expiresAt) {
			st.idem[key] = idempotencyRecord{
				operatorID:  operatorID,
				operation:   operation,
				requestHash: requestHash,
				status:      idempotency.StatusPending,
				updatedAt:   now,
				expiresAt:   now.Add(i.ttl),
			}
			return nil
		}

		if rec.operatorID != operatorID || rec.operation != operation || rec.requestHash != requestHash {
			return apperror.NewIdempotencyMismatch(key).
				WithDetail("stored_operation", rec.operation).
				WithDetail("request_operation", operation)
		}

		switch rec.status {
		case idempotency.StatusSuccess, idempotency.StatusFailed:
			replay = &idempotency.Replay{
				StatusCode:  idempotency.NormalizeStatus(rec.statusCode),
				ContentType: idempotency.NormalizeContentType(rec.contentType),
				Body:        rec.response,
			}
			return nil
		default:
			if now.Sub(rec.updatedAt) > idempotency.StaleAfter {
				rec.updatedAt = now
				st.idem[key] = rec
				return nil
			}
			return apperror.NewIdempotencyConflict(key)
		}
	})
	if err != nil {
		return nil, err
	}
	return replay, nil
}

func (i *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	return i.finish(ctx, key, idempotency.StatusSuccess, statusCode, contentType, body)
}

func (i *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, response any) error {
	body, err := json.Marshal(response)
	if err != nil {
		body, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return i.finish(ctx, key, idempotency.StatusFailed, statusCode, contentType, body)
}

func (i *IdempotencyStore) ReleaseKey(ctx context.Context, key string) error {
	return i.s.update(ctx, func(st *state) error {
		if rec, ok := st.idem[key]; ok && rec.status == idempotency.StatusPending {
			delete(st.idem, key)
		}
		return nil
	})
}

func (i *IdempotencyStore) finish(ctx context.Context, key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	now := i.clock()
	return i.s.update(ctx, func(st *state) error {
		rec, ok := st.idem[key]
		if !ok {
			return nil
		}
		rec.status = status
		rec.statusCode = statusCode
		rec.contentType = contentType
		rec.response = body
		rec.updatedAt = now
		st.idem[key] = rec
		return nil
	})
}

func (i *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	now := i.clock()
	var n int64
	err := i.s.update(ctx, func(st *state) error {
		for key, rec := range st.idem {
			if rec.expiresAt.Before(now) {
				delete(st.idem, key)
				n++
			}
		}
		return nil
	})
	return n, err
}
