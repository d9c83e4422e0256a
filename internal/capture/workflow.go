package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shalset/barcode-backend/internal/models"
)

// ErrProductNotFound is returned by ProductService.LookupProduct when
// no product exists for a barcode. The workflow treats it as a normal
// outcome, not a failure.
var ErrProductNotFound = errors.New("product not found")

// ProductService is the workflow's view of the backend.
type ProductService interface {
	LookupProduct(ctx context.Context, barcode string) (*models.Product, error)
	CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error)
	AdjustStock(ctx context.Context, barcode string, in StockAdjustment) (*models.Product, error)
}

// CreateProductInput is the new-product form.
type CreateProductInput struct {
	Barcode      string  `json:"barcode"`
	Name         string  `json:"name"`
	Quantity     int     `json:"quantity"`
	Note         string  `json:"note,omitempty"`
	BuyingPrice  float64 `json:"buyingPrice"`
	SellingPrice float64 `json:"sellingPrice"`
	BoughtFrom   string  `json:"boughtFrom,omitempty"`
	SellLocation string  `json:"sellLocation,omitempty"`
}

// StockAdjustment is the add/remove-stock form. Counterparty is the
// supplier for additions and the sell location for removals.
type StockAdjustment struct {
	Direction    models.StockDirection `json:"type"`
	Quantity     int                   `json:"quantity"`
	Note         string                `json:"note,omitempty"`
	Counterparty string                `json:"counterparty,omitempty"`
}

// WorkflowState is the modal's position in its lifecycle.
type WorkflowState int

const (
	StateIdle WorkflowState = iota
	StateLookupPending
	StateNotFoundForm
	StateFoundForm
	StateSubmitting
)

func (s WorkflowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLookupPending:
		return "lookup-pending"
	case StateNotFoundForm:
		return "not-found-form"
	case StateFoundForm:
		return "found-form"
	case StateSubmitting:
		return "submitting"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Workflow is the short-lived product modal keyed by a scanned barcode:
// lookup, then either a creation form or a stock adjustment form.
// Transitions are explicit; calling a submit in the wrong state is an
// error rather than a silent misfire.
type Workflow struct {
	mu      sync.Mutex
	svc     ProductService
	state   WorkflowState
	barcode string
	product *models.Product
	lastErr string
	gen     int // bumped on Begin/Close so stale async results are dropped

	// onIdle runs after a successful submit returns the modal to idle
	// (used to refocus keyboard input).
	onIdle func()
}

// NewWorkflow creates an idle workflow over the given backend.
func NewWorkflow(svc ProductService, onIdle func()) *Workflow {
	return &Workflow{svc: svc, onIdle: onIdle}
}

// State returns the current state, the barcode under work and the
// looked-up product (nil unless in the found form).
func (w *Workflow) State() (WorkflowState, string, *models.Product) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state, w.barcode, w.product
}

// LastError returns the inline form error, if any.
func (w *Workflow) LastError() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// Begin starts the modal for a freshly scanned barcode: any in-progress
// modal is discarded and an asynchronous lookup is issued.
func (w *Workflow) Begin(barcode string) {
	w.mu.Lock()
	w.gen++
	gen := w.gen
	w.state = StateLookupPending
	w.barcode = barcode
	w.product = nil
	w.lastErr = ""
	w.mu.Unlock()

	go func() {
		product, err := w.svc.LookupProduct(context.Background(), barcode)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.gen != gen || w.state != StateLookupPending {
			return
		}
		switch {
		case err == nil:
			w.product = product
			w.state = StateFoundForm
		case errors.Is(err, ErrProductNotFound):
			w.state = StateNotFoundForm
		default:
			// Transport error: stay on the not-found form so the user
			// can retry; the message is surfaced inline.
			w.state = StateNotFoundForm
			w.lastErr = "failed to check product, check your connection"
		}
	}()
}

// Close discards the in-progress modal without persisting anything.
func (w *Workflow) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.gen++
	w.state = StateIdle
	w.barcode = ""
	w.product = nil
	w.lastErr = ""
}

// SubmitCreate validates and submits the new-product form. Validation
// errors keep the form open with an inline message and never reach the
// backend.
func (w *Workflow) SubmitCreate(in CreateProductInput) error {
	w.mu.Lock()
	if w.state != StateNotFoundForm {
		err := fmt.Errorf("workflow: create submitted in state %s", w.state)
		w.mu.Unlock()
		return err
	}
	if strings.TrimSpace(in.Name) == "" {
		w.lastErr = "product name is required"
		w.mu.Unlock()
		return nil
	}
	if in.Quantity <= 0 {
		w.lastErr = "valid quantity is required"
		w.mu.Unlock()
		return nil
	}
	in.Barcode = w.barcode
	in.Name = strings.TrimSpace(in.Name)
	gen := w.gen
	w.state = StateSubmitting
	w.lastErr = ""
	w.mu.Unlock()

	go func() {
		_, err := w.svc.CreateProduct(context.Background(), in)
		w.settleSubmit(gen, StateNotFoundForm, err)
	}()
	return nil
}

// SubmitAdjust validates and submits a stock adjustment for the
// looked-up product. Removing more than the current stock is rejected
// here, before any network traffic.
func (w *Workflow) SubmitAdjust(in StockAdjustment) error {
	w.mu.Lock()
	if w.state != StateFoundForm {
		err := fmt.Errorf("workflow: adjust submitted in state %s", w.state)
		w.mu.Unlock()
		return err
	}
	if in.Quantity <= 0 {
		w.lastErr = "valid quantity is required"
		w.mu.Unlock()
		return nil
	}
	if in.Direction == models.StockRemove && w.product != nil && in.Quantity > w.product.CurrentStock {
		w.lastErr = fmt.Sprintf("cannot remove %d, only %d in stock", in.Quantity, w.product.CurrentStock)
		w.mu.Unlock()
		return nil
	}
	barcode := w.barcode
	gen := w.gen
	w.state = StateSubmitting
	w.lastErr = ""
	w.mu.Unlock()

	go func() {
		_, err := w.svc.AdjustStock(context.Background(), barcode, in)
		w.settleSubmit(gen, StateFoundForm, err)
	}()
	return nil
}

// settleSubmit resolves a Submitting state: success returns to idle,
// failure returns to the originating form with the error displayed so
// the user can correct and retry without re-scanning.
func (w *Workflow) settleSubmit(gen int, retryState WorkflowState, err error) {
	w.mu.Lock()
	if w.gen != gen || w.state != StateSubmitting {
		w.mu.Unlock()
		return
	}
	if err != nil {
		w.state = retryState
		w.lastErr = err.Error()
		w.mu.Unlock()
		return
	}
	w.state = StateIdle
	w.barcode = ""
	w.product = nil
	w.lastErr = ""
	onIdle := w.onIdle
	w.mu.Unlock()
	if onIdle != nil {
		onIdle()
	}
}
