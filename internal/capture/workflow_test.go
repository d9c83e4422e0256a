package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shalset/barcode-backend/internal/models"
)

// stubProductService returns canned results and records calls.
type stubProductService struct {
	mu        sync.Mutex
	product   *models.Product
	lookupErr error
	createErr error
	adjustErr error

	creates []CreateProductInput
	adjusts []StockAdjustment
}

func (s *stubProductService) LookupProduct(_ context.Context, barcode string) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.product, nil
}

func (s *stubProductService) CreateProduct(_ context.Context, in CreateProductInput) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, in)
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.Product{Barcode: in.Barcode, Name: in.Name, CurrentStock: in.Quantity}, nil
}

func (s *stubProductService) AdjustStock(_ context.Context, barcode string, in StockAdjustment) (*models.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adjusts = append(s.adjusts, in)
	if s.adjustErr != nil {
		return nil, s.adjustErr
	}
	return &models.Product{Barcode: barcode}, nil
}

func waitForState(t *testing.T, w *Workflow, want WorkflowState) {
	t.Helper()
	require.Eventually(t, func() bool {
		got, _, _ := w.State()
		return got == want
	}, time.Second, 5*time.Millisecond, "waiting for workflow state %s", want)
}

func TestWorkflowLookupNotFound(t *testing.T) {
	svc := &stubProductService{lookupErr: ErrProductNotFound}
	w := NewWorkflow(svc, nil)

	w.Begin("NEW-1")
	waitForState(t, w, StateNotFoundForm)
	_, barcode, product := w.State()
	assert.Equal(t, "NEW-1", barcode)
	assert.Nil(t, product)
	assert.Empty(t, w.LastError())
}

func TestWorkflowLookupFound(t *testing.T) {
	svc := &stubProductService{product: &models.Product{Barcode: "KNOWN", Name: "Widget", CurrentStock: 7}}
	w := NewWorkflow(svc, nil)

	w.Begin("KNOWN")
	waitForState(t, w, StateFoundForm)
	_, _, product := w.State()
	require.NotNil(t, product)
	assert.Equal(t, "Widget", product.Name)
}

func TestWorkflowLookupTransportError(t *testing.T) {
	svc := &stubProductService{lookupErr: errors.New("connection refused")}
	w := NewWorkflow(svc, nil)

	w.Begin("ANY")
	waitForState(t, w, StateNotFoundForm)
	assert.NotEmpty(t, w.LastError())
}

func TestWorkflowCreateValidation(t *testing.T) {
	svc := &stubProductService{lookupErr: ErrProductNotFound}
	w := NewWorkflow(svc, nil)
	w.Begin("NEW-2")
	waitForState(t, w, StateNotFoundForm)

	// Missing name: inline error, form stays open, nothing submitted.
	require.NoError(t, w.SubmitCreate(CreateProductInput{Quantity: 5}))
	state, _, _ := w.State()
	assert.Equal(t, StateNotFoundForm, state)
	assert.Equal(t, "product name is required", w.LastError())

	// Non-positive quantity.
	require.NoError(t, w.SubmitCreate(CreateProductInput{Name: "Thing", Quantity: 0}))
	assert.Equal(t, "valid quantity is required", w.LastError())
	assert.Empty(t, svc.creates, "validation errors never reach the backend")
}

func TestWorkflowCreateSuccess(t *testing.T) {
	refocused := make(chan struct{}, 1)
	svc := &stubProductService{lookupErr: ErrProductNotFound}
	w := NewWorkflow(svc, func() { refocused <- struct{}{} })
	w.Begin("NEW-3")
	waitForState(t, w, StateNotFoundForm)

	require.NoError(t, w.SubmitCreate(CreateProductInput{Name: "  Thing  ", Quantity: 5}))
	waitForState(t, w, StateIdle)
	require.Len(t, svc.creates, 1)
	assert.Equal(t, "NEW-3", svc.creates[0].Barcode, "barcode comes from the scan, not the form")
	assert.Equal(t, "Thing", svc.creates[0].Name)
	select {
	case <-refocused:
	case <-time.After(time.Second):
		t.Fatal("refocus hook was not invoked after successful submit")
	}
}

func TestWorkflowCreateBackendErrorAllowsRetry(t *testing.T) {
	svc := &stubProductService{lookupErr: ErrProductNotFound, createErr: errors.New("barcode already exists")}
	w := NewWorkflow(svc, nil)
	w.Begin("DUP")
	waitForState(t, w, StateNotFoundForm)

	require.NoError(t, w.SubmitCreate(CreateProductInput{Name: "Thing", Quantity: 1}))
	waitForState(t, w, StateNotFoundForm)
	assert.Equal(t, "barcode already exists", w.LastError())

	// Retry after the backend recovers.
	svc.mu.Lock()
	svc.createErr = nil
	svc.mu.Unlock()
	require.NoError(t, w.SubmitCreate(CreateProductInput{Name: "Thing", Quantity: 1}))
	waitForState(t, w, StateIdle)
}

func TestWorkflowRemoveExceedingStockRejected(t *testing.T) {
	svc := &stubProductService{product: &models.Product{Barcode: "P", CurrentStock: 3}}
	w := NewWorkflow(svc, nil)
	w.Begin("P")
	waitForState(t, w, StateFoundForm)

	require.NoError(t, w.SubmitAdjust(StockAdjustment{Direction: models.StockRemove, Quantity: 5}))
	state, _, _ := w.State()
	assert.Equal(t, StateFoundForm, state)
	assert.Equal(t, "cannot remove 5, only 3 in stock", w.LastError())
	assert.Empty(t, svc.adjusts, "rejected client-side, before any network traffic")
}

func TestWorkflowAdjustSuccess(t *testing.T) {
	svc := &stubProductService{product: &models.Product{Barcode: "P", CurrentStock: 3}}
	w := NewWorkflow(svc, nil)
	w.Begin("P")
	waitForState(t, w, StateFoundForm)

	require.NoError(t, w.SubmitAdjust(StockAdjustment{Direction: models.StockAdd, Quantity: 10, Counterparty: "ABC Supplier"}))
	waitForState(t, w, StateIdle)
	require.Len(t, svc.adjusts, 1)
	assert.Equal(t, models.StockAdd, svc.adjusts[0].Direction)
}

func TestWorkflowSubmitInWrongStateIsError(t *testing.T) {
	svc := &stubProductService{}
	w := NewWorkflow(svc, nil)

	assert.Error(t, w.SubmitCreate(CreateProductInput{Name: "X", Quantity: 1}))
	assert.Error(t, w.SubmitAdjust(StockAdjustment{Direction: models.StockAdd, Quantity: 1}))
}

func TestWorkflowCloseDiscardsInProgressState(t *testing.T) {
	svc := &stubProductService{product: &models.Product{Barcode: "P", CurrentStock: 3}}
	w := NewWorkflow(svc, nil)
	w.Begin("P")
	waitForState(t, w, StateFoundForm)

	w.Close()
	state, barcode, product := w.State()
	assert.Equal(t, StateIdle, state)
	assert.Empty(t, barcode)
	assert.Nil(t, product)
	assert.Empty(t, svc.adjusts)
}

func TestWorkflowStaleLookupDiscardedAfterClose(t *testing.T) {
	block := make(chan struct{})
	svc := &blockingService{unblock: block, product: &models.Product{Barcode: "SLOW"}}
	w := NewWorkflow(svc, nil)

	w.Begin("SLOW")
	w.Close()
	close(block)

	// The stale lookup result must not resurrect the modal.
	time.Sleep(20 * time.Millisecond)
	state, _, _ := w.State()
	assert.Equal(t, StateIdle, state)
}

// blockingService holds lookups until unblocked.
type blockingService struct {
	unblock chan struct{}
	product *models.Product
}

func (s *blockingService) LookupProduct(context.Context, string) (*models.Product, error) {
	<-s.unblock
	return s.product, nil
}

func (s *blockingService) CreateProduct(context.Context, CreateProductInput) (*models.Product, error) {
	return nil, errors.New("not implemented")
}

func (s *blockingService) AdjustStock(context.Context, string, StockAdjustment) (*models.Product, error) {
	return nil, errors.New("not implemented")
}
