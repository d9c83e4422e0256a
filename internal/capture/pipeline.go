// Package capture implements the barcode capture pipeline: two
// acquisition front-ends (keyboard wedge and camera decode stream)
// feeding a single completion handler that debounces, records history
// and hands accepted scans to the backend.
package capture

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shalset/barcode-backend/internal/models"
)

// Default tuning values, matching the scanning app.
const (
	DefaultHistorySize       = 20
	DefaultInactivityTimeout = 100 * time.Millisecond
	DefaultAlignmentDelay    = 300 * time.Millisecond
	DefaultRequiredReads     = 3
	DefaultValidationWindow  = 500 * time.Millisecond
	DefaultCooldown          = 2000 * time.Millisecond
)

// Config tunes the pipeline timers and bounds. Zero values fall back to
// the defaults above.
type Config struct {
	HistorySize       int           `yaml:"historySize"`
	InactivityTimeout time.Duration `yaml:"inactivityTimeout"`
	AlignmentDelay    time.Duration `yaml:"alignmentDelay"`
	RequiredReads     int           `yaml:"requiredReads"`
	ValidationWindow  time.Duration `yaml:"validationWindow"`
	Cooldown          time.Duration `yaml:"cooldown"`
	DeviceTag         string        `yaml:"deviceTag"`
}

func (c Config) withDefaults() Config {
	if c.HistorySize <= 0 {
		c.HistorySize = DefaultHistorySize
	}
	if c.InactivityTimeout <= 0 {
		c.InactivityTimeout = DefaultInactivityTimeout
	}
	if c.AlignmentDelay <= 0 {
		c.AlignmentDelay = DefaultAlignmentDelay
	}
	if c.RequiredReads <= 0 {
		c.RequiredReads = DefaultRequiredReads
	}
	if c.ValidationWindow <= 0 {
		c.ValidationWindow = DefaultValidationWindow
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// CompletedScan is an accepted, deduplicated barcode ready for submission.
// It is created only by the completion handler and never mutated.
type CompletedScan struct {
	Value     string
	Mode      models.ScanMode
	Timestamp time.Time
}

// Submitter delivers accepted scans to the persistence backend.
// Submission is fire-and-forget from the pipeline's perspective:
// errors are logged and the local accept stands.
type Submitter interface {
	SubmitScan(ctx context.Context, barcode string, mode models.ScanMode, deviceTag string) error
}

// lookupStarter is the hook into the product lookup workflow. Satisfied by *Workflow.
// Satisfied by *Workflow.
type lookupStarter interface {
	Begin(barcode string)
}

// Pipeline is one scan-screen instance. All entry points (input events
// and timer callbacks) serialize through one mutex, giving the same
// one-event-at-a-time semantics as the app's UI event loop.
type Pipeline struct {
	mu    sync.Mutex
	cfg   Config
	clock Clock

	submitter Submitter
	workflow  lookupStarter
	effects   Effects
	onScan    func(CompletedScan)

	mode models.ScanMode

	// keyboard state
	buffer          string
	inactivityTimer Timer

	// camera state
	scanReady       bool
	alignTimer      Timer
	pendingValue    string
	readCount       int
	validationTimer Timer

	// shared state, owned by the completion handler
	cooldownValue string
	cooldownUntil time.Time
	lastScanned   string
	history       []string
}

// Option configures optional pipeline collaborators.
type Option func(*Pipeline)

// WithClock substitutes the time source. Used by tests.
func WithClock(c Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// WithWorkflow attaches the product lookup workflow triggered after
// each accepted scan.
func WithWorkflow(w *Workflow) Option {
	return func(p *Pipeline) { p.workflow = w }
}

// WithEffects attaches haptic/clipboard side-effect triggers.
func WithEffects(e Effects) Option {
	return func(p *Pipeline) { p.effects = e }
}

// WithScanObserver registers a callback invoked synchronously for every
// accepted scan, after history has been updated.
func WithScanObserver(fn func(CompletedScan)) Option {
	return func(p *Pipeline) { p.onScan = fn }
}

// NewPipeline creates a pipeline in keyboard mode.
func NewPipeline(cfg Config, submitter Submitter, opts ...Option) *Pipeline {
	p := &Pipeline{
		cfg:       cfg.withDefaults(),
		clock:     SystemClock(),
		submitter: submitter,
		effects:   NoopEffects{},
		mode:      models.ScanModeKeyboard,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Mode returns the live acquisition mode.
func (p *Pipeline) Mode() models.ScanMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// SetMode switches the live acquisition mode. The switch is exclusive:
// pending timers of the outgoing mode are cancelled and its transient
// state cleared, while history and the cooldown slot are preserved.
// Entering camera mode arms the alignment delay before decodes are
// accepted.
func (p *Pipeline) SetMode(mode models.ScanMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !mode.Valid() || mode == p.mode {
		return
	}
	p.clearTransientLocked()
	p.mode = mode
	if mode == models.ScanModeCamera {
		p.armAlignmentLocked()
	}
}

// Blur is called when the scan screen loses focus: all pending timers
// are cancelled and transient input state dropped. History and cooldown
// survive until the screen session ends.
func (p *Pipeline) Blur() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearTransientLocked()
}

// Focus re-arms the screen after a blur. In camera mode the alignment
// delay restarts, mirroring mode entry.
func (p *Pipeline) Focus() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == models.ScanModeCamera {
		p.armAlignmentLocked()
	}
}

func (p *Pipeline) clearTransientLocked() {
	p.stopTimer(&p.inactivityTimer)
	p.stopTimer(&p.validationTimer)
	p.stopTimer(&p.alignTimer)
	p.buffer = ""
	p.pendingValue = ""
	p.readCount = 0
	p.scanReady = false
}

func (p *Pipeline) stopTimer(t *Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

// --- keyboard-wedge acquisition ---

// KeyboardInput appends characters emitted by a wedge scanner. Every
// append restarts the inactivity timer; when the device goes quiet for
// the timeout, the buffer is flushed as one scan.
func (p *Pipeline) KeyboardInput(chars string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != models.ScanModeKeyboard {
		return
	}
	p.buffer += chars
	p.stopTimer(&p.inactivityTimer)
	if len(p.buffer) == 0 {
		return
	}
	p.inactivityTimer = p.clock.AfterFunc(p.cfg.InactivityTimeout, p.flushBuffer)
}

// KeyboardEnter handles a terminator keystroke: the pending inactivity
// timer is cancelled and the buffer submits immediately.
func (p *Pipeline) KeyboardEnter() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != models.ScanModeKeyboard {
		return
	}
	p.stopTimer(&p.inactivityTimer)
	p.completeLocked(p.buffer, models.ScanModeKeyboard)
}

// flushBuffer is the inactivity timer callback.
func (p *Pipeline) flushBuffer() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inactivityTimer = nil
	if p.mode != models.ScanModeKeyboard {
		return
	}
	p.completeLocked(p.buffer, models.ScanModeKeyboard)
}

// --- camera acquisition with consistent-read validation ---

// CameraDecode processes one raw decode event from the video stream.
// A decode only counts once the alignment delay has elapsed; the same
// payload must be decoded RequiredReads times in a row inside the
// validation window before it completes. A single frame decode is not
// reliable evidence of a correct read.
func (p *Pipeline) CameraDecode(data string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode != models.ScanModeCamera || !p.scanReady {
		return
	}
	data = strings.TrimSpace(data)
	if data == "" {
		return
	}

	if data == p.pendingValue {
		p.readCount++
		if p.readCount >= p.cfg.RequiredReads {
			p.stopTimer(&p.validationTimer)
			p.pendingValue = ""
			p.readCount = 0
			p.completeLocked(data, models.ScanModeCamera)
		}
		return
	}

	// Different payload (or no candidate yet): restart validation.
	p.stopTimer(&p.validationTimer)
	p.pendingValue = data
	p.readCount = 1
	p.validationTimer = p.clock.AfterFunc(p.cfg.ValidationWindow, p.expireValidation)
}

// expireValidation discards a candidate that never reached the read
// threshold. The scan must restart from a fresh read.
func (p *Pipeline) expireValidation() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.validationTimer = nil
	p.pendingValue = ""
	p.readCount = 0
}

// ValidationProgress returns how many consistent reads the current
// camera candidate has accumulated.
func (p *Pipeline) ValidationProgress() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.readCount
}

// ScanReady reports whether the camera alignment delay has elapsed.
func (p *Pipeline) ScanReady() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scanReady
}

func (p *Pipeline) armAlignmentLocked() {
	p.scanReady = false
	p.stopTimer(&p.alignTimer)
	p.alignTimer = p.clock.AfterFunc(p.cfg.AlignmentDelay, func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.alignTimer = nil
		if p.mode == models.ScanModeCamera {
			p.scanReady = true
		}
	})
}

// --- completion handler ---

// completeLocked is the single convergence point for both acquisition
// modes. It guarantees at most one accepted scan per physical scan
// event: empty input is a no-op, a value identical to the last accepted
// one is dropped while the cooldown runs.
func (p *Pipeline) completeLocked(raw string, mode models.ScanMode) {
	value := strings.TrimSpace(raw)
	if value == "" {
		p.buffer = ""
		return
	}

	now := p.clock.Now()
	if value == p.cooldownValue && now.Before(p.cooldownUntil) {
		return
	}
	p.cooldownValue = value
	p.cooldownUntil = now.Add(p.cfg.Cooldown)

	scan := CompletedScan{Value: value, Mode: mode, Timestamp: now}
	p.lastScanned = value
	p.history = append([]string{value}, p.history...)
	if len(p.history) > p.cfg.HistorySize {
		p.history = p.history[:p.cfg.HistorySize]
	}

	p.effects.HapticSuccess()

	if p.submitter != nil {
		go func() {
			if err := p.submitter.SubmitScan(context.Background(), scan.Value, scan.Mode, p.cfg.DeviceTag); err != nil {
				fmt.Printf("[Pipeline] submit scan %q failed: %v\n", scan.Value, err)
			}
		}()
	}
	if p.workflow != nil {
		p.workflow.Begin(value)
	}
	if p.onScan != nil {
		p.onScan(scan)
	}

	if mode == models.ScanModeKeyboard {
		p.buffer = ""
	}
	if mode == models.ScanModeCamera && p.mode == models.ScanModeCamera {
		p.armAlignmentLocked()
	}
}

// --- history surface ---

// History returns the recent scan values, newest first.
func (p *Pipeline) History() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.history))
	copy(out, p.history)
	return out
}

// LastScanned returns the most recently accepted value, or "" if none.
func (p *Pipeline) LastScanned() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastScanned
}

// ClearHistory drops the history list and the last-scanned value.
func (p *Pipeline) ClearHistory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.history = nil
	p.lastScanned = ""
	p.effects.HapticImpact(ImpactMedium)
}

// CopyLastScan places the last accepted value on the clipboard.
// It reports whether there was anything to copy.
func (p *Pipeline) CopyLastScan() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastScanned == "" {
		return false
	}
	p.effects.CopyToClipboard(p.lastScanned)
	p.effects.HapticImpact(ImpactLight)
	return true
}
