package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"digifeeds/internal/alma"
	"digifeeds/internal/dbclient"
	"digifeeds/internal/domain"
	"digifeeds/internal/hathifiles"
	"digifeeds/internal/query"
	"digifeeds/internal/rclone"
)

const testBarcode = "39015040218748"

var frozenNow = time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

type fakeStore struct {
	mu    sync.Mutex
	items map[string]*domain.Item
	now   time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]*domain.Item), now: frozenNow}
}

func (f *fakeStore) seed(barcode string, statuses ...domain.StatusEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[barcode] = &domain.Item{Barcode: barcode, CreatedAt: f.now, Statuses: statuses}
}

func (f *fakeStore) GetItem(_ context.Context, barcode string) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[barcode]
	if !ok {
		return domain.Item{}, dbclient.ErrNotFound
	}
	return *item, nil
}

func (f *fakeStore) GetOrCreateItem(_ context.Context, barcode string) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if item, ok := f.items[barcode]; ok {
		return *item, nil
	}
	item := &domain.Item{Barcode: barcode, CreatedAt: f.now}
	f.items[barcode] = item
	return *item, nil
}

func (f *fakeStore) AddItemStatus(_ context.Context, barcode string, status domain.StatusName) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[barcode]
	if !ok {
		return domain.Item{}, dbclient.ErrNotFound
	}
	item.Statuses = append(item.Statuses, domain.StatusEvent{Name: status, CreatedAt: f.now})
	return *item, nil
}

func (f *fakeStore) SetHathifilesTimestamp(_ context.Context, barcode string, ts time.Time) (domain.Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[barcode]
	if !ok {
		return domain.Item{}, dbclient.ErrNotFound
	}
	if item.HathifilesTimestamp != nil {
		return domain.Item{}, dbclient.ErrAlreadyHasValue
	}
	item.HathifilesTimestamp = &ts
	item.Statuses = append(item.Statuses, domain.StatusEvent{Name: domain.StatusInHathifiles, CreatedAt: f.now})
	return *item, nil
}

func (f *fakeStore) ListItems(_ context.Context, filter domain.ItemFilter, q string, limit, offset int) (domain.PageOfItems, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	preds, err := query.Parse(q)
	if err != nil {
		return domain.PageOfItems{}, err
	}
	if filter == domain.FilterPendingDeletion {
		preds = append(preds, query.StatusPredicate{Status: string(domain.StatusPendingDeletion)})
	}

	matched := make([]domain.Item, 0)
	for _, item := range f.items {
		if query.Matches(*item, preds) {
			matched = append(matched, *item)
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return domain.PageOfItems{Limit: limit, Offset: offset, Total: total, Items: []domain.Item{}}, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return domain.PageOfItems{Limit: limit, Offset: offset, Total: total, Items: matched[offset:end]}, nil
}

type fakeAlma struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeAlma) AddBarcodeToDigifeedsSet(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

type fakeZephir struct {
	mu    sync.Mutex
	found bool
	err   error
	calls int
}

func (f *fakeZephir) HasBibRecord(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.found, f.err
}

type fakeHoldings struct {
	mu     sync.Mutex
	record *hathifiles.Record
	err    error
	calls  int
}

func (f *fakeHoldings) GetItem(_ context.Context, _ string) (*hathifiles.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.record, f.err
}

type moverCall struct {
	op   string
	args []string
}

type fakeMover struct {
	mu        sync.Mutex
	calls     []moverCall
	lsEntries []rclone.Entry
	failOp    string
}

func (f *fakeMover) record(op string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, moverCall{op: op, args: args})
	if f.failOp == op {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (f *fakeMover) Copyto(_ context.Context, src, dst string) error {
	return f.record("copyto", src, dst)
}

func (f *fakeMover) Moveto(_ context.Context, src, dst string) error {
	return f.record("moveto", src, dst)
}

func (f *fakeMover) Ls(_ context.Context, path string, filters ...string) ([]rclone.Entry, error) {
	if err := f.record("ls", append([]string{path}, filters...)...); err != nil {
		return nil, err
	}
	return f.lsEntries, nil
}

func (f *fakeMover) Delete(_ context.Context, path string) error {
	return f.record("delete", path)
}

func (f *fakeMover) Purge(_ context.Context, path string) error {
	return f.record("purge", path)
}

func (f *fakeMover) ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.calls))
	for i, call := range f.calls {
		ops[i] = call.op
	}
	return ops
}

type testDeps struct {
	store    *fakeStore
	alma     *fakeAlma
	zephir   *fakeZephir
	holdings *fakeHoldings
	mover    *fakeMover
	pipeline *Pipeline
}

func setup(t *testing.T) testDeps {
	t.Helper()
	deps := testDeps{
		store:    newFakeStore(),
		alma:     &fakeAlma{},
		zephir:   &fakeZephir{},
		holdings: &fakeHoldings{},
		mover:    &fakeMover{},
	}
	deps.pipeline = New(deps.store, deps.alma, deps.zephir, deps.holdings, deps.mover, Remotes{
		S3Remote:      "bucket",
		InputPath:     "input_barcodes",
		ProcessedPath: "processed_barcodes",
		PickupRemote:  "pickup",
		ReportsRemote: "reports",
	})
	deps.pipeline.now = func() time.Time { return frozenNow }
	return deps
}

func TestAddToDigifeedsSet(t *testing.T) {
	deps := setup(t)

	item, err := deps.pipeline.AddToDigifeedsSet(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusAddedToDigifeedsSet))
	require.Equal(t, 1, deps.alma.calls)
}

func TestAddToDigifeedsSetAlreadyAddedSkipsIlsCall(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusAddedToDigifeedsSet, CreatedAt: frozenNow})

	item, err := deps.pipeline.AddToDigifeedsSet(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusAddedToDigifeedsSet))
	require.Zero(t, deps.alma.calls)
	require.Len(t, item.StatusEvents(domain.StatusAddedToDigifeedsSet), 1)
}

func TestAddToDigifeedsSetUnknownBarcode(t *testing.T) {
	deps := setup(t)
	deps.alma.err = alma.ErrUnknownBarcode

	item, err := deps.pipeline.AddToDigifeedsSet(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusNotFoundInAlma))
	require.False(t, item.HasStatus(domain.StatusAddedToDigifeedsSet))

	// A second run does not stack another not_found_in_alma event.
	item, err = deps.pipeline.AddToDigifeedsSet(context.Background(), testBarcode)
	require.NoError(t, err)
	require.Len(t, item.StatusEvents(domain.StatusNotFoundInAlma), 1)
}

func TestAddToDigifeedsSetAlreadyMemberIsSuccess(t *testing.T) {
	deps := setup(t)
	deps.alma.err = alma.ErrAlreadyMember

	item, err := deps.pipeline.AddToDigifeedsSet(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusAddedToDigifeedsSet))
}

func TestAddToDigifeedsSetUnclassifiedErrorIsFatal(t *testing.T) {
	deps := setup(t)
	deps.alma.err = errors.New("alma is down")

	_, err := deps.pipeline.AddToDigifeedsSet(context.Background(), testBarcode)
	require.Error(t, err)

	item, err := deps.store.GetItem(context.Background(), testBarcode)
	require.NoError(t, err)
	require.Empty(t, item.Statuses)
}

func TestCheckZephirFound(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode)
	deps.zephir.found = true

	item, found, err := deps.pipeline.CheckZephir(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, item.HasStatus(domain.StatusInZephir))
}

func TestCheckZephirNotFoundYet(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode)

	item, found, err := deps.pipeline.CheckZephir(context.Background(), testBarcode)
	require.NoError(t, err)
	require.False(t, found)
	require.False(t, item.HasStatus(domain.StatusInZephir))
}

func TestCheckZephirAlreadyInZephirSkipsRegistryCall(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusInZephir, CreatedAt: frozenNow})

	item, found, err := deps.pipeline.CheckZephir(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, found)
	require.Zero(t, deps.zephir.calls)
	require.Len(t, item.StatusEvents(domain.StatusInZephir), 1)
}

func TestCheckZephirUnknownItem(t *testing.T) {
	deps := setup(t)
	_, _, err := deps.pipeline.CheckZephir(context.Background(), testBarcode)
	require.ErrorIs(t, err, dbclient.ErrNotFound)
}

func TestReadyForPickupBoundary(t *testing.T) {
	makeItem := func(age time.Duration) domain.Item {
		return domain.Item{
			Barcode:  testBarcode,
			Statuses: []domain.StatusEvent{{Name: domain.StatusInZephir, CreatedAt: frozenNow.Add(-age)}},
		}
	}

	require.False(t, ReadyForPickup(domain.Item{Barcode: testBarcode}, frozenNow))
	require.False(t, ReadyForPickup(makeItem(WaitingPeriod-time.Second), frozenNow))
	require.True(t, ReadyForPickup(makeItem(WaitingPeriod), frozenNow), "boundary is inclusive")
	require.True(t, ReadyForPickup(makeItem(WaitingPeriod+time.Hour), frozenNow))
}

func TestMoveToPickupNotReadyTouchesNothing(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusInZephir, CreatedAt: frozenNow.Add(-time.Hour)})

	item, moved, err := deps.pipeline.MoveToPickup(context.Background(), testBarcode)
	require.NoError(t, err)
	require.False(t, moved)
	require.Empty(t, deps.mover.ops())
	require.False(t, item.HasStatus(domain.StatusCopyingStart))
}

func TestMoveToPickup(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusInZephir, CreatedAt: frozenNow.Add(-WaitingPeriod)})

	item, moved, err := deps.pipeline.MoveToPickup(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, moved)

	require.True(t, item.HasStatus(domain.StatusCopyingStart))
	require.True(t, item.HasStatus(domain.StatusCopyingEnd))
	require.True(t, item.HasStatus(domain.StatusPendingDeletion))

	require.Equal(t, []moverCall{
		{op: "copyto", args: []string{
			"bucket:input_barcodes/39015040218748.zip",
			"pickup:39015040218748.zip",
		}},
		{op: "moveto", args: []string{
			"bucket:input_barcodes/39015040218748.zip",
			"bucket:processed_barcodes/2025-02-01_12-00-00_39015040218748.zip",
		}},
	}, deps.mover.calls)
}

func TestMoveToPickupCopyFailureLeavesCopyingStartAsTheSignal(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusInZephir, CreatedAt: frozenNow.Add(-WaitingPeriod)})
	deps.mover.failOp = "copyto"

	_, _, err := deps.pipeline.MoveToPickup(context.Background(), testBarcode)
	require.Error(t, err)

	item, err := deps.store.GetItem(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusCopyingStart))
	require.False(t, item.HasStatus(domain.StatusCopyingEnd))
	require.False(t, item.HasStatus(domain.StatusPendingDeletion))
}

func TestCheckHathifilesFound(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusPendingDeletion, CreatedAt: frozenNow})
	deps.holdings.record = &hathifiles.Record{HTID: "mdp." + testBarcode, RightsTimestamp: "2024-12-14T02:01:05"}

	item, found, err := deps.pipeline.CheckHathifiles(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, item.HasStatus(domain.StatusInHathifiles))
	require.NotNil(t, item.HathifilesTimestamp)
	require.Equal(t, time.Date(2024, 12, 14, 2, 1, 5, 0, time.UTC), *item.HathifilesTimestamp)
}

func TestCheckHathifilesNotThereYet(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode)

	item, found, err := deps.pipeline.CheckHathifiles(context.Background(), testBarcode)
	require.NoError(t, err)
	require.False(t, found)
	require.False(t, item.HasStatus(domain.StatusInHathifiles))
}

func TestCheckHathifilesAlreadyConfirmedSkipsLookup(t *testing.T) {
	deps := setup(t)
	ts := time.Date(2024, 12, 14, 2, 1, 5, 0, time.UTC)
	deps.store.seed(testBarcode, domain.StatusEvent{Name: domain.StatusInHathifiles, CreatedAt: frozenNow})
	deps.store.items[testBarcode].HathifilesTimestamp = &ts

	_, found, err := deps.pipeline.CheckHathifiles(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, found)
	require.Zero(t, deps.holdings.calls)
}

func TestProcessBarcodeWaitingOnZephir(t *testing.T) {
	deps := setup(t)

	outcome, err := deps.pipeline.ProcessBarcode(context.Background(), testBarcode)
	require.NoError(t, err)
	require.Equal(t, OutcomeWaitingOnZephir, outcome)

	item, err := deps.store.GetItem(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusAddedToDigifeedsSet))
	require.Empty(t, deps.mover.ops())
}

func TestProcessBarcodeNotFoundInAlma(t *testing.T) {
	deps := setup(t)
	deps.alma.err = alma.ErrUnknownBarcode

	outcome, err := deps.pipeline.ProcessBarcode(context.Background(), testBarcode)
	require.NoError(t, err)
	require.Equal(t, OutcomeNotFoundInAlma, outcome)
	require.Zero(t, deps.zephir.calls)
}

func TestProcessBarcodeWaitingPeriodNotOver(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode,
		domain.StatusEvent{Name: domain.StatusAddedToDigifeedsSet, CreatedAt: frozenNow.Add(-time.Hour)},
		domain.StatusEvent{Name: domain.StatusInZephir, CreatedAt: frozenNow.Add(-time.Hour)})

	outcome, err := deps.pipeline.ProcessBarcode(context.Background(), testBarcode)
	require.NoError(t, err)
	require.Equal(t, OutcomeWaitingPeriod, outcome)
	require.Empty(t, deps.mover.ops())
}

func TestProcessBarcodeMovesToPickup(t *testing.T) {
	deps := setup(t)
	deps.store.seed(testBarcode,
		domain.StatusEvent{Name: domain.StatusAddedToDigifeedsSet, CreatedAt: frozenNow.Add(-WaitingPeriod)},
		domain.StatusEvent{Name: domain.StatusInZephir, CreatedAt: frozenNow.Add(-WaitingPeriod)})

	outcome, err := deps.pipeline.ProcessBarcode(context.Background(), testBarcode)
	require.NoError(t, err)
	require.Equal(t, OutcomeMovedToPickup, outcome)
	require.Equal(t, []string{"copyto", "moveto"}, deps.mover.ops())

	item, err := deps.store.GetItem(context.Background(), testBarcode)
	require.NoError(t, err)
	require.True(t, item.HasStatus(domain.StatusPendingDeletion))
}
