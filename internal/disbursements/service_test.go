package disbursements

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/givefi/givefi-backend/pkg/db/models"
	"github.com/givefi/givefi-backend/pkg/enums"
	pkgerrors "github.com/givefi/givefi-backend/pkg/errors"
	"github.com/givefi/givefi-backend/pkg/logger"
	pkgpagination "github.com/givefi/givefi-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type fakeRepository struct {
	pending  []models.Donation
	existing []models.DisbursementRecord
	listRows []models.DisbursementRecord

	completed []string
	created   []models.DisbursementRecord

	pendingErr error
	createErr  error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository {
	return f
}

func (f *fakeRepository) ListPendingForUpdate(ctx context.Context, causeID string) ([]models.Donation, error) {
	if f.pendingErr != nil {
		return nil, f.pendingErr
	}
	return f.pending, nil
}

func (f *fakeRepository) MarkDonationCompleted(ctx context.Context, donationID string) error {
	f.completed = append(f.completed, donationID)
	return nil
}

func (f *fakeRepository) CreateRecords(ctx context.Context, records []models.DisbursementRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, records...)
	return nil
}

func (f *fakeRepository) ListByCauseAndRef(ctx context.Context, causeID, disbursementRef string) ([]models.DisbursementRecord, error) {
	return f.existing, nil
}

// ListByCause mirrors the real repository's strict DESC cursor filter so page
// boundaries behave like the database.
func (f *fakeRepository) ListByCause(ctx context.Context, q listQuery) ([]models.DisbursementRecord, error) {
	var page []models.DisbursementRecord
	for _, row := range f.listRows {
		if q.cursor != nil {
			after := row.CreatedAt.Before(q.cursor.CreatedAt) ||
				(row.CreatedAt.Equal(q.cursor.CreatedAt) && row.ID.String() < q.cursor.ID)
			if !after {
				continue
			}
		}
		page = append(page, row)
		if len(page) == q.limit {
			break
		}
	}
	return page, nil
}

func (f *fakeRepository) ListByDonation(ctx context.Context, donationID string) ([]models.DisbursementRecord, error) {
	var rows []models.DisbursementRecord
	for _, record := range f.created {
		if record.DonationID == donationID {
			rows = append(rows, record)
		}
	}
	return rows, nil
}

type fakeCauseReader struct {
	err error
}

func (f *fakeCauseReader) Get(ctx context.Context, id string) (*models.Cause, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.Cause{ID: id}, nil
}

type fakeTxRunner struct {
	err error
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	return fn(nil)
}

type fakeLockStore struct {
	setNXResult bool
	setNXErr    error

	values map[string]string
}

func (f *fakeLockStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if f.setNXErr != nil {
		return false, f.setNXErr
	}
	if !f.setNXResult {
		return false, nil
	}
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value.(string)
	return true, nil
}

func (f *fakeLockStore) Get(ctx context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeLockStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func (f *fakeLockStore) AllocationLockKey(causeID string) string {
	return "gf:alloc:cause:" + causeID
}

func newTestService(t *testing.T, repo *fakeRepository, causes *fakeCauseReader, tx *fakeTxRunner, store *fakeLockStore) Service {
	t.Helper()

	locker, err := NewCauseLocker(store, time.Minute)
	if err != nil {
		t.Fatalf("unexpected locker error: %v", err)
	}
	svc, err := NewService(repo, causes, tx, locker, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), nil)
	if err != nil {
		t.Fatalf("unexpected service error: %v", err)
	}
	return svc
}

func pendingDonation(id string, amount string, createdAt time.Time) models.Donation {
	return models.Donation{
		DonationID: id,
		DonorID:    "donor-" + id,
		CauseID:    "cause-water",
		Amount:     decimal.RequireFromString(amount),
		Currency:   enums.CurrencyUSD,
		Status:     enums.DonationStatusPending,
		CreatedAt:  createdAt,
	}
}

func TestAllocate_FIFOPartialFill(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		pending: []models.Donation{
			pendingDonation("donation-1", "500", base),
			pendingDonation("donation-2", "500", base.AddDate(0, 0, 1)),
		},
	}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	result, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("700"),
		DisbursementRef: "tx1",
	})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}

	if len(result.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(result.Records))
	}
	if !result.Records[0].Amount.Equal(decimal.RequireFromString("500")) {
		t.Fatalf("oldest donation should be fully credited, got %s", result.Records[0].Amount)
	}
	if !result.Records[1].Amount.Equal(decimal.RequireFromString("200")) {
		t.Fatalf("second donation should be partially credited, got %s", result.Records[1].Amount)
	}
	if !result.UnallocatedSurplus.IsZero() {
		t.Fatalf("expected zero surplus, got %s", result.UnallocatedSurplus)
	}
	if result.Replayed {
		t.Fatal("fresh ref must not report replay")
	}

	if len(repo.completed) != 1 || repo.completed[0] != "donation-1" {
		t.Fatalf("only the fully consumed donation should complete, got %v", repo.completed)
	}
	if len(repo.created) != 2 {
		t.Fatalf("expected 2 persisted records, got %d", len(repo.created))
	}
	for _, record := range repo.created {
		if record.DisbursementRef != "tx1" || record.CauseID != "cause-water" {
			t.Fatalf("record missing batch identity: %+v", record)
		}
	}
}

func TestAllocate_NoPendingDonations(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	result, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("100"),
		DisbursementRef: "tx2",
	})
	if err != nil {
		t.Fatalf("empty pending list must not error: %v", err)
	}
	if len(result.Records) != 0 {
		t.Fatalf("expected no records, got %d", len(result.Records))
	}
	if !result.UnallocatedSurplus.Equal(decimal.RequireFromString("100")) {
		t.Fatalf("full amount should surface as surplus, got %s", result.UnallocatedSurplus)
	}
}

func TestAllocate_SumNeverExceedsDonation(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeRepository{
		pending: []models.Donation{
			pendingDonation("donation-1", "50.10", base),
			pendingDonation("donation-2", "25.05", base.Add(time.Hour)),
		},
	}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	result, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("100"),
		DisbursementRef: "tx3",
	})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}

	byDonation := map[string]decimal.Decimal{}
	for _, record := range result.Records {
		byDonation[record.DonationID] = byDonation[record.DonationID].Add(record.Amount)
	}
	for _, donation := range repo.pending {
		if byDonation[donation.DonationID].GreaterThan(donation.Amount) {
			t.Fatalf("donation %s over-credited: %s > %s", donation.DonationID, byDonation[donation.DonationID], donation.Amount)
		}
	}
	if !result.UnallocatedSurplus.Equal(decimal.RequireFromString("24.85")) {
		t.Fatalf("surplus mismatch: %s", result.UnallocatedSurplus)
	}
}

func TestAllocate_ReplayReturnsStoredRecords(t *testing.T) {
	stored := []models.DisbursementRecord{
		{DonationID: "donation-1", DisbursementRef: "tx1", CauseID: "cause-water", DonorID: "donor-1", Amount: decimal.RequireFromString("500")},
		{DonationID: "donation-2", DisbursementRef: "tx1", CauseID: "cause-water", DonorID: "donor-2", Amount: decimal.RequireFromString("200")},
	}
	repo := &fakeRepository{
		existing: stored,
		pending: []models.Donation{
			pendingDonation("donation-2", "500", time.Now()),
		},
	}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	result, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("700"),
		DisbursementRef: "tx1",
	})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if !result.Replayed {
		t.Fatal("expected replay")
	}
	if len(result.Records) != 2 {
		t.Fatalf("expected stored records back, got %d", len(result.Records))
	}
	if len(repo.created) != 0 || len(repo.completed) != 0 {
		t.Fatal("replay must not write records or touch donations")
	}
	if !result.UnallocatedSurplus.IsZero() {
		t.Fatalf("recomputed surplus should be zero, got %s", result.UnallocatedSurplus)
	}
}

func TestAllocate_ReplayWithSmallerAmount(t *testing.T) {
	stored := []models.DisbursementRecord{
		{DonationID: "donation-1", DisbursementRef: "tx1", CauseID: "cause-water", DonorID: "donor-1", Amount: decimal.RequireFromString("500")},
		{DonationID: "donation-2", DisbursementRef: "tx1", CauseID: "cause-water", DonorID: "donor-2", Amount: decimal.RequireFromString("200")},
	}
	repo := &fakeRepository{existing: stored}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	result, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("500"),
		DisbursementRef: "tx1",
	})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if !result.Replayed {
		t.Fatal("expected replay")
	}
	if len(repo.created) != 0 || len(repo.completed) != 0 {
		t.Fatal("replay must not write records or touch donations")
	}
	// Surplus tracks the caller's amount, so a retry below the stored sum
	// goes negative instead of inventing unallocated funds.
	if !result.UnallocatedSurplus.Equal(decimal.RequireFromString("-200")) {
		t.Fatalf("surplus should reflect the amount shortfall, got %s", result.UnallocatedSurplus)
	}
}

func TestAllocate_Validation(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	cases := []struct {
		name  string
		input AllocateInput
	}{
		{name: "missing cause", input: AllocateInput{Amount: decimal.RequireFromString("10"), DisbursementRef: "tx1"}},
		{name: "missing ref", input: AllocateInput{CauseID: "cause-water", Amount: decimal.RequireFromString("10")}},
		{name: "zero amount", input: AllocateInput{CauseID: "cause-water", DisbursementRef: "tx1"}},
		{name: "negative amount", input: AllocateInput{CauseID: "cause-water", Amount: decimal.RequireFromString("-10"), DisbursementRef: "tx1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Allocate(context.Background(), tc.input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestAllocate_UnknownCause(t *testing.T) {
	causes := &fakeCauseReader{err: pkgerrors.New(pkgerrors.CodeNotFound, "cause not found")}
	svc := newTestService(t, &fakeRepository{}, causes, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	_, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-missing",
		Amount:          decimal.RequireFromString("10"),
		DisbursementRef: "tx1",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestAllocate_LockContention(t *testing.T) {
	svc := newTestService(t, &fakeRepository{}, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: false})

	_, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("10"),
		DisbursementRef: "tx1",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if !pkgerrors.Retryable(err) {
		t.Fatal("lock contention should be retryable")
	}
}

func TestAllocate_PersistenceFailureRollsBack(t *testing.T) {
	repo := &fakeRepository{
		pending:   []models.Donation{pendingDonation("donation-1", "100", time.Now())},
		createErr: errors.New("connection reset"),
	}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	_, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("10"),
		DisbursementRef: "tx1",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodePersistence {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatal("failed batch must not report created records")
	}
}

func TestAllocate_UniqueViolationMapsToConflict(t *testing.T) {
	repo := &fakeRepository{
		pending:   []models.Donation{pendingDonation("donation-1", "100", time.Now())},
		createErr: errors.New(`duplicate key value violates unique constraint "idx_disbursement_donation_ref"`),
	}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	_, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("10"),
		DisbursementRef: "tx1",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestAllocate_ReleasesLock(t *testing.T) {
	store := &fakeLockStore{setNXResult: true}
	svc := newTestService(t, &fakeRepository{}, &fakeCauseReader{}, &fakeTxRunner{}, store)

	_, err := svc.Allocate(context.Background(), AllocateInput{
		CauseID:         "cause-water",
		Amount:          decimal.RequireFromString("10"),
		DisbursementRef: "tx1",
	})
	if err != nil {
		t.Fatalf("Allocate error: %v", err)
	}
	if len(store.values) != 0 {
		t.Fatalf("lock should be released, still held: %v", store.values)
	}
}

func TestListByDonation(t *testing.T) {
	repo := &fakeRepository{
		created: []models.DisbursementRecord{
			{DonationID: "donation-1", DisbursementRef: "tx1", Amount: decimal.RequireFromString("100")},
			{DonationID: "donation-2", DisbursementRef: "tx1", Amount: decimal.RequireFromString("50")},
			{DonationID: "donation-1", DisbursementRef: "tx2", Amount: decimal.RequireFromString("25")},
		},
	}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	items, err := svc.ListByDonation(context.Background(), "donation-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 records for donation-1, got %d", len(items))
	}
	for _, item := range items {
		if item.DonationID != "donation-1" {
			t.Fatalf("foreign record leaked into listing: %+v", item)
		}
	}

	if _, err := svc.ListByDonation(context.Background(), "  "); err == nil {
		t.Fatal("blank donation id should be rejected")
	}
}

func TestListByCausePaginationCoversEveryRow(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]models.DisbursementRecord, 0, 5)
	for i := 0; i < 5; i++ {
		rows = append(rows, models.DisbursementRecord{
			ID:              uuid.New(),
			DonationID:      "donation-" + string(rune('a'+i)),
			DisbursementRef: "tx1",
			CauseID:         "cause-water",
			DonorID:         "donor-1",
			Amount:          decimal.RequireFromString("10"),
			CreatedAt:       base.Add(-time.Duration(i) * time.Minute),
		})
	}

	repo := &fakeRepository{listRows: rows}
	svc := newTestService(t, repo, &fakeCauseReader{}, &fakeTxRunner{}, &fakeLockStore{setNXResult: true})

	seen := map[string]int{}
	cursor := ""
	for page := 0; ; page++ {
		if page > len(rows) {
			t.Fatal("pagination did not terminate")
		}
		result, err := svc.ListByCause(context.Background(), ListParams{
			CauseID: "cause-water",
			Params:  pkgpagination.Params{Limit: 2, Cursor: cursor},
		})
		if err != nil {
			t.Fatalf("ListByCause error on page %d: %v", page, err)
		}
		for _, item := range result.Items {
			seen[item.DonationID]++
		}
		if result.Cursor == "" {
			break
		}
		cursor = result.Cursor
	}

	for _, row := range rows {
		if seen[row.DonationID] != 1 {
			t.Fatalf("row %s returned %d times, want exactly once", row.DonationID, seen[row.DonationID])
		}
	}
}
