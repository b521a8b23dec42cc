package node

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samsamfire/gouavcan/pkg/filter"
	"github.com/samsamfire/gouavcan/pkg/frame"
	"github.com/samsamfire/gouavcan/pkg/link"
)

// Processor is the only part of this package that touches goroutines,
// tickers or a mutex: it is the host loop spec §5 describes, pumping
// frames between a Link and a *Node and driving RunPerSecondTasks, one
// goroutine apiece, exactly the way the teacher's NodeProcessor drives
// its CANopen node's background()/main() tickers. Node itself stays
// single-threaded and cooperative; Processor is what makes it safe to
// share across the goroutines that read the link and the ones that write
// to it.
type Processor struct {
	logger *slog.Logger
	node   *Node
	link   link.Link

	drainPeriod time.Duration
	maxFilters  int

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewProcessor builds a Processor driving n over l. drainPeriod is how
// often the outgoing queue is polled and flushed to the link; maxFilters
// bounds how many hardware acceptance filters pkg/filter.Reduce may
// produce when installing n's subscriptions on l.
func NewProcessor(n *Node, l link.Link, drainPeriod time.Duration, maxFilters int, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if drainPeriod <= 0 {
		drainPeriod = 2 * time.Millisecond
	}
	return &Processor{
		logger:      logger.With("service", "[PROC]"),
		node:        n,
		link:        l,
		drainPeriod: drainPeriod,
		maxFilters:  maxFilters,
	}
}

// Handle implements link.Listener: every frame the link receives is fed
// into the node under the processor's lock.
func (p *Processor) Handle(f frame.Frame) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.node.AcceptFrame(f)
}

// Start subscribes to the link, installs the node's current acceptance
// filters, and launches the background goroutines. Call Stop to stop
// them and Wait to block until they have exited.
func (p *Processor) Start(ctx context.Context) error {
	if err := p.link.Subscribe(p); err != nil {
		return err
	}
	if err := p.installFilters(); err != nil {
		p.logger.Warn("failed to install hardware filters, falling back to receive-all", "err", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		p.drainLoop(ctx)
	}()
	go func() {
		defer p.wg.Done()
		p.secondLoop(ctx)
	}()
	return nil
}

// Stop cancels the background goroutines; call Wait afterwards to block
// until they have actually exited.
func (p *Processor) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until both background goroutines have exited.
func (p *Processor) Wait() {
	p.wg.Wait()
}

func (p *Processor) installFilters() error {
	p.mu.Lock()
	ideal := p.node.FrameFilters()
	p.mu.Unlock()
	reduced := filter.Reduce(ideal, p.maxFilters)
	return p.link.SetFilters(reduced)
}

// drainLoop flushes frames the node has queued for transmission to the
// link, at drainPeriod. It does not take the lock while calling
// link.Send, since a slow or blocking link write must not stall
// AcceptFrame on the receive side.
func (p *Processor) drainLoop(ctx context.Context) {
	ticker := time.NewTicker(p.drainPeriod)
	defer ticker.Stop()
	p.logger.Info("starting queue drain loop")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("exited queue drain loop")
			return
		case <-ticker.C:
			p.drainOnce()
		}
	}
}

func (p *Processor) drainOnce() {
	for {
		p.mu.Lock()
		now := p.node.Clock.Now()
		f, ok := p.node.Queue.Pop(now)
		p.mu.Unlock()
		if !ok {
			return
		}
		if err := p.link.Send(f); err != nil {
			p.logger.Warn("failed to send frame", "err", err, "id", f.ID)
		}
	}
}

// secondLoop drives Node.RunPerSecondTasks once a second.
func (p *Processor) secondLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	p.logger.Info("starting per-second task loop")
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("exited per-second task loop")
			return
		case <-ticker.C:
			p.mu.Lock()
			p.node.RunPerSecondTasks()
			p.mu.Unlock()
		}
	}
}
