package service

import (
	"context"
	"sync"

	"collection-gateway/internal/core/domain"
	"collection-gateway/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// memStore is an in-memory transactional store. Transactions are fully
// serialized and undone from an undo log on rollback.
type memStore struct {
	txMu sync.Mutex // held from Begin until Commit/Rollback

	mu           sync.Mutex
	balances     map[balanceKey]domain.MerchantBalance
	transactions map[string]domain.Transaction
	payouts      map[uuid.UUID]domain.Payout
	accounts     map[uuid.UUID]domain.VirtualAccount
	methods      map[uuid.UUID]domain.PaymentMethod
}

type balanceKey struct {
	merchantID uuid.UUID
	currency   domain.Currency
}

func newMemStore() *memStore {
	return &memStore{
		balances:     make(map[balanceKey]domain.MerchantBalance),
		transactions: make(map[string]domain.Transaction),
		payouts:      make(map[uuid.UUID]domain.Payout),
		accounts:     make(map[uuid.UUID]domain.VirtualAccount),
		methods:      make(map[uuid.UUID]domain.PaymentMethod),
	}
}

type memTx struct {
	pgx.Tx
	s    *memStore
	undo []func()
	done bool
}

func (s *memStore) Begin(_ context.Context) (pgx.Tx, error) {
	s.txMu.Lock()
	return &memTx{s: s}, nil
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.s.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.s.mu.Unlock()
	t.done = true
	t.s.txMu.Unlock()
	return nil
}

// record remembers how to undo a write. Callers hold s.mu.
func (t *memTx) record(fn func()) {
	t.undo = append(t.undo, fn)
}

func asMemTx(tx pgx.Tx) *memTx {
	return tx.(*memTx)
}

// ---- Balance ledger ----

type memLedger struct{ s *memStore }

var _ ports.BalanceLedger = memLedger{}

func (l memLedger) put(tx *memTx, b domain.MerchantBalance) {
	key := balanceKey{b.MerchantID, b.Currency}
	prev, existed := l.s.balances[key]
	l.s.balances[key] = b
	tx.record(func() {
		if existed {
			l.s.balances[key] = prev
		} else {
			delete(l.s.balances, key)
		}
	})
}

func (l memLedger) Create(_ context.Context, tx pgx.Tx, b *domain.MerchantBalance) error {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	l.put(asMemTx(tx), *b)
	return nil
}

func (l memLedger) ListByMerchant(_ context.Context, merchantID uuid.UUID) ([]domain.MerchantBalance, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	var out []domain.MerchantBalance
	for _, cur := range domain.SupportedCurrencies {
		if b, ok := l.s.balances[balanceKey{merchantID, cur}]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (l memLedger) GetForUpdate(_ context.Context, _ pgx.Tx, merchantID uuid.UUID, currency domain.Currency) (*domain.MerchantBalance, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	b, ok := l.s.balances[balanceKey{merchantID, currency}]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (l memLedger) apply(tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, fn func(b *domain.MerchantBalance) error) (*domain.MerchantBalance, error) {
	l.s.mu.Lock()
	defer l.s.mu.Unlock()
	b, ok := l.s.balances[balanceKey{merchantID, currency}]
	if !ok {
		return nil, domain.ErrBalanceNotFound
	}
	if err := fn(&b); err != nil {
		return nil, err
	}
	l.put(asMemTx(tx), b)
	return &b, nil
}

func (l memLedger) CreditAvailable(_ context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	return l.apply(tx, merchantID, currency, func(b *domain.MerchantBalance) error {
		b.AvailableBalance = b.AvailableBalance.Add(amount)
		return nil
	})
}

func (l memLedger) CreditPending(_ context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	return l.apply(tx, merchantID, currency, func(b *domain.MerchantBalance) error {
		b.PendingSettlementBalance = b.PendingSettlementBalance.Add(amount)
		return nil
	})
}

func (l memLedger) Debit(_ context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	return l.apply(tx, merchantID, currency, func(b *domain.MerchantBalance) error {
		if !b.CanDebit(amount) {
			return domain.ErrInsufficientFunds
		}
		b.AvailableBalance = b.AvailableBalance.Sub(amount)
		return nil
	})
}

func (l memLedger) Settle(_ context.Context, tx pgx.Tx, merchantID uuid.UUID, currency domain.Currency, amount domain.Money) (*domain.MerchantBalance, error) {
	return l.apply(tx, merchantID, currency, func(b *domain.MerchantBalance) error {
		if b.PendingSettlementBalance.LessThan(amount.Decimal) {
			return domain.ErrInsufficientPending
		}
		b.PendingSettlementBalance = b.PendingSettlementBalance.Sub(amount)
		b.AvailableBalance = b.AvailableBalance.Add(amount)
		return nil
	})
}

// ---- Transactions ----

type memTransactions struct{ s *memStore }

var _ ports.TransactionRepository = memTransactions{}

func (r memTransactions) Create(_ context.Context, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.transactions[t.Reference] = *t
	return nil
}

func (r memTransactions) GetByReference(_ context.Context, reference string) (*domain.Transaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.transactions[reference]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (r memTransactions) GetByReferenceForUpdate(ctx context.Context, _ pgx.Tx, reference string) (*domain.Transaction, error) {
	return r.GetByReference(ctx, reference)
}

func (r memTransactions) update(tx pgx.Tx, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	prev := r.s.transactions[t.Reference]
	r.s.transactions[t.Reference] = *t
	asMemTx(tx).record(func() { r.s.transactions[t.Reference] = prev })
	return nil
}

func (r memTransactions) UpdateCapture(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.update(tx, t)
}

func (r memTransactions) MarkSettled(_ context.Context, tx pgx.Tx, t *domain.Transaction) error {
	return r.update(tx, t)
}

func (r memTransactions) List(_ context.Context, _ ports.TransactionListParams) ([]domain.Transaction, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Transaction, 0, len(r.s.transactions))
	for _, t := range r.s.transactions {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

// ---- Payouts ----

type memPayouts struct{ s *memStore }

var _ ports.PayoutRepository = memPayouts{}

func (r memPayouts) Create(_ context.Context, tx pgx.Tx, p *domain.Payout) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.payouts[p.ID] = *p
	asMemTx(tx).record(func() { delete(r.s.payouts, p.ID) })
	return nil
}

func (r memPayouts) GetByID(_ context.Context, id uuid.UUID) (*domain.Payout, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payouts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r memPayouts) List(_ context.Context, params ports.PayoutListParams) ([]domain.Payout, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Payout
	for _, p := range r.s.payouts {
		if params.MerchantID == nil || p.MerchantID == *params.MerchantID {
			out = append(out, p)
		}
	}
	return out, int64(len(out)), nil
}

// ---- Virtual accounts & payment methods ----

type memAccounts struct{ s *memStore }

func (r memAccounts) Create(_ context.Context, tx pgx.Tx, va *domain.VirtualAccount) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.accounts[va.MerchantID] = *va
	asMemTx(tx).record(func() { delete(r.s.accounts, va.MerchantID) })
	return nil
}

func (r memAccounts) GetByMerchantID(_ context.Context, merchantID uuid.UUID) (*domain.VirtualAccount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	va, ok := r.s.accounts[merchantID]
	if !ok {
		return nil, nil
	}
	return &va, nil
}

type memMethods struct{ s *memStore }

func (r memMethods) GetByID(_ context.Context, id uuid.UUID) (*domain.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.methods[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r memMethods) ListAvailableByCurrency(_ context.Context, currency domain.Currency) ([]domain.PaymentMethod, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.PaymentMethod
	for _, m := range r.s.methods {
		if m.Available && m.Supports(currency) {
			out = append(out, m)
		}
	}
	return out, nil
}

// auditSink collects entries synchronously.
type auditSink struct {
	mu      sync.Mutex
	entries []domain.AuditLog
}

func (a *auditSink) Record(_ context.Context, entry domain.AuditLog) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *auditSink) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// memMerchants and memKeys back registration; they are not transactional.
type memMerchants struct {
	mu        sync.Mutex
	merchants []domain.Merchant
}

func (r *memMerchants) Create(_ context.Context, _ pgx.Tx, m *domain.Merchant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.merchants {
		if existing.Email == m.Email {
			return domain.ErrEmailTaken
		}
	}
	r.merchants = append(r.merchants, *m)
	return nil
}

func (r *memMerchants) GetByID(_ context.Context, id uuid.UUID) (*domain.Merchant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.merchants {
		if m.ID == id {
			return &m, nil
		}
	}
	return nil, nil
}

func (r *memMerchants) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.merchants {
		if m.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memMerchants) List(_ context.Context, _ ports.MerchantListParams) ([]domain.Merchant, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Merchant(nil), r.merchants...), int64(len(r.merchants)), nil
}

type memKeys struct {
	mu   sync.Mutex
	keys []domain.MerchantKey
}

func (r *memKeys) Create(_ context.Context, _ pgx.Tx, k *domain.MerchantKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, *k)
	return nil
}

func (r *memKeys) GetByPublicKey(_ context.Context, publicKey string) (*domain.MerchantKey, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, k := range r.keys {
		if k.PublicKey == publicKey {
			return &k, nil
		}
	}
	return nil, nil
}
