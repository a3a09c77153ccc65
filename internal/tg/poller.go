package tg

import (
	"context"
	"sync"
	"time"

	"github.com/kapu/telegram-chess-bot/internal/obslog"
	"go.uber.org/zap"
)

type UpdateCallback func(upd *Update)

type callbackEntry struct {
	id       int
	callback UpdateCallback
}

// Poller drives getUpdates long polling and fans updates out to callbacks.
// Each update is dispatched on its own goroutine so a slow handler cannot
// stall the poll loop.
type Poller struct {
	client     *Client
	timeoutSec int

	offset int64

	cbs []callbackEntry
	cbM sync.RWMutex

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewPoller(client *Client, timeoutSec int) *Poller {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	return &Poller{
		client:     client,
		timeoutSec: timeoutSec,
		stopCh:     make(chan struct{}),
		cbs:        make([]callbackEntry, 0),
	}
}

func (p *Poller) OnUpdate(cb UpdateCallback) int {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	id := len(p.cbs) + 1
	p.cbs = append(p.cbs, callbackEntry{id: id, callback: cb})
	return id
}

func (p *Poller) RemoveCallback(id int) {
	p.cbM.Lock()
	defer p.cbM.Unlock()
	for i, cb := range p.cbs {
		if cb.id == id {
			p.cbs = append(p.cbs[:i], p.cbs[i+1:]...)
			break
		}
	}
}

// Start launches the poll loop. It returns immediately.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	failures := 0
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		updates, err := p.client.GetUpdates(ctx, p.offset, p.timeoutSec)
		if err != nil {
			if p.isStopping() || ctx.Err() != nil {
				return
			}
			failures++
			obslog.L().Warn("poll getUpdates failed", zap.Int("failures", failures), zap.Error(err))
			select {
			case <-p.stopCh:
				return
			case <-time.After(backoffDuration(failures)):
			}
			continue
		}
		failures = 0

		for i := range updates {
			upd := updates[i]
			if upd.UpdateID >= p.offset {
				p.offset = upd.UpdateID + 1
			}
			p.dispatch(&upd)
		}
	}
}

func (p *Poller) dispatch(upd *Update) {
	p.cbM.RLock()
	callbacks := make([]callbackEntry, len(p.cbs))
	copy(callbacks, p.cbs)
	p.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback == nil {
			continue
		}
		cb := entry.callback
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			cb(upd)
		}()
	}
}

// Stop halts polling and waits for in-flight handlers.
func (p *Poller) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (p *Poller) isStopping() bool {
	select {
	case <-p.stopCh:
		return true
	default:
		return false
	}
}
