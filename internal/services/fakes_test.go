package services

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"studentpay-backend/internal/mail"
	"studentpay-backend/internal/models"
	"studentpay-backend/internal/repositories"
)

type fakeProvider struct {
	calls atomic.Int32
	delay time.Duration
	txn   *models.VerifiedTransaction
	err   error
}

func (f *fakeProvider) VerifyTransaction(_ context.Context, reference string) (*models.VerifiedTransaction, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	vt := *f.txn
	return &vt, nil
}

// memoryTxns is an in-memory transaction store keyed by reference
type memoryTxns struct {
	mu    sync.Mutex
	byRef map[string]*models.Transaction
}

func newMemoryTxns() *memoryTxns {
	return &memoryTxns{byRef: map[string]*models.Transaction{}}
}

func (m *memoryTxns) GetByReference(_ context.Context, reference string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byRef[reference]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *tx
	return &copied, nil
}

func (m *memoryTxns) CreatePending(_ context.Context, tx *models.Transaction) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byRef[tx.Reference]; ok {
		return false, nil
	}
	for _, existing := range m.byRef {
		if existing.TxnID == tx.TxnID {
			return false, nil
		}
	}
	copied := *tx
	copied.ReceiptState = models.ReceiptStatePending
	copied.CreatedAt = time.Now()
	m.byRef[tx.Reference] = &copied
	return true, nil
}

func (m *memoryTxns) MarkReceipted(_ context.Context, reference, hash, url string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx, ok := m.byRef[reference]
	if !ok || tx.ReceiptState != models.ReceiptStatePending {
		return false, nil
	}
	now := time.Now()
	tx.ReceiptState = models.ReceiptStateReceipted
	tx.ReceiptHash = hash
	tx.ReceiptURL = url
	tx.ReceiptedAt = &now
	return true, nil
}

func (m *memoryTxns) GetByReceiptHash(_ context.Context, hash string) (*models.Transaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tx := range m.byRef {
		if tx.ReceiptState == models.ReceiptStateReceipted && tx.ReceiptHash == hash {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryTxns) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byRef)
}

type memoryPayments struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Payment
	err    error
}

func newMemoryPayments(payments ...*models.Payment) *memoryPayments {
	m := &memoryPayments{byID: map[int]*models.Payment{}}
	for _, p := range payments {
		m.byID[p.ID] = p
		if p.ID > m.nextID {
			m.nextID = p.ID
		}
	}
	return m
}

func (m *memoryPayments) Get(_ context.Context, id int) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (m *memoryPayments) Create(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	copied := *p
	m.byID[p.ID] = &copied
	return nil
}

func (m *memoryPayments) ListByDepartment(_ context.Context, departmentID int) ([]*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.Payment
	for _, p := range m.byID {
		if p.DepartmentID == departmentID {
			copied := *p
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryPayments) Update(_ context.Context, p *models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[p.ID]
	if !ok || existing.DepartmentID != p.DepartmentID {
		return repositories.ErrNotFound
	}
	copied := *p
	m.byID[p.ID] = &copied
	return nil
}

func (m *memoryPayments) Delete(_ context.Context, id, departmentID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.byID[id]
	if !ok || existing.DepartmentID != departmentID {
		return repositories.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

type memoryDepartments struct {
	mu     sync.Mutex
	nextID int
	byID   map[int]*models.Department
}

func newMemoryDepartments(depts ...*models.Department) *memoryDepartments {
	m := &memoryDepartments{byID: map[int]*models.Department{}}
	for _, d := range depts {
		m.byID[d.ID] = d
		if d.ID > m.nextID {
			m.nextID = d.ID
		}
	}
	return m
}

func (m *memoryDepartments) Get(_ context.Context, id int) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (m *memoryDepartments) GetByEmail(_ context.Context, email string) (*models.Department, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.byID {
		if d.Email == email {
			copied := *d
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memoryDepartments) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryDepartments) Create(_ context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	d.ID = m.nextID
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	copied := *d
	m.byID[d.ID] = &copied
	return nil
}

func (m *memoryDepartments) UpdateProfile(_ context.Context, d *models.Department) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[d.ID]; !ok {
		return repositories.ErrNotFound
	}
	copied := *d
	m.byID[d.ID] = &copied
	return nil
}

func (m *memoryDepartments) UpdateAsset(_ context.Context, id int, kind, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	switch kind {
	case models.AssetLogo:
		d.LogoURL = url
	case models.AssetPresidentSignature:
		d.PresidentSignatureURL = url
	case models.AssetSecretarySignature:
		d.SecretarySignatureURL = url
	default:
		return errors.New("unknown asset kind")
	}
	return nil
}

func (m *memoryDepartments) SetVerified(_ context.Context, id int, verified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.IsVerified = verified
	return nil
}

type memoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	uploads int
	err     error
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{objects: map[string][]byte{}}
}

func (m *memoryStorage) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if m.err != nil {
		return "", m.err
	}
	m.objects[key] = body
	return m.PublicURL(key), nil
}

func (m *memoryStorage) PublicURL(key string) string {
	return "https://cdn.example.edu/" + key
}

type recordingMail struct {
	mu   sync.Mutex
	sent []*mail.Message
}

func (r *recordingMail) Enqueue(_ context.Context, msg *mail.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return true
}

func (r *recordingMail) messages() []*mail.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*mail.Message(nil), r.sent...)
}

func (m *memoryDepartments) UpdatePassword(_ context.Context, id int, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.byID[id]
	if !ok {
		return repositories.ErrNotFound
	}
	d.PasswordHash = passwordHash
	return nil
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string][]byte{}}
}

func (m *memoryCache) GetJSON(_ context.Context, key string, dest any) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.data[key]
	return ok && json.Unmarshal(raw, dest) == nil
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, _ := json.Marshal(value)
	m.data[key] = raw
}

func (m *memoryCache) InvalidateKeys(_ context.Context, keys ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
}

func (m *memoryCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

type fakeBankDirectory struct {
	listCalls   int
	banks       []models.Bank
	accountName string
	subAccount  string
	resolveErr  error
	lastSub     *models.SubAccountRequest
}

func (f *fakeBankDirectory) ListBanks(context.Context) ([]models.Bank, error) {
	f.listCalls++
	return f.banks, nil
}

func (f *fakeBankDirectory) ResolveAccount(_ context.Context, _, _ string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return f.accountName, nil
}

func (f *fakeBankDirectory) CreateSubAccount(_ context.Context, req *models.SubAccountRequest) (string, error) {
	f.lastSub = req
	return f.subAccount, nil
}

type fakeTokens struct{}

func (fakeTokens) GenerateToken(dept *models.Department) (string, error) {
	return "token-for-" + dept.Email, nil
}

type fakeCheckout struct {
	customerReq *models.CustomerRequest
	checkout    *models.CheckoutRequest
	err         error
}

func (f *fakeCheckout) CreateCustomer(_ context.Context, req *models.CustomerRequest) (string, error) {
	f.customerReq = req
	return "CUS_123", nil
}

func (f *fakeCheckout) InitializeCheckout(_ context.Context, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.checkout = req
	return &models.CheckoutResult{AuthorizationURL: "https://checkout.example/" + req.Reference, Reference: req.Reference}, nil
}

type fakeTxnStats struct {
	stats  *models.TransactionStats
	filter models.TransactionFilter
}

func (f *fakeTxnStats) List(_ context.Context, filter models.TransactionFilter) (*models.TransactionPage, error) {
	f.filter = filter
	return &models.TransactionPage{Results: []*models.Transaction{}}, nil
}

func (f *fakeTxnStats) Stats(context.Context, int) (*models.TransactionStats, error) {
	return f.stats, nil
}
