// Package timer implements the timer multiplexer: one
// hardware timer fans out to an ordered list of software timeout
// events plus a per-tick nudge to the scheduler. Grounded on
// original_source/kernel/TimerMultiplexer.cc and Timer.cc's
// CNTP_CTL_EL0/CNTP_TVAL_EL0/CNTFRQ_EL0 register sequence, with one
// correction: the original only decrements timeouts and never removes
// expired events, which would fire them on every subsequent tick
// forever. This implementation fires an event exactly once, then
// removes it.
package timer

import (
	"sync"

	"mmio"
)

// Register offsets within the system timer / core-timer control block.
const (
	core0TimerIrqCtrl = 0x40 // CORE0_TIMER_IRQ_CTRL, relative offset for simulation
)

const defaultIntervalSeconds = 2

// Event is a one-shot callback scheduled to fire after Timeout ticks
// have elapsed.
type Event struct {
	Message string
	Timeout uint32
	Fire    func()
}

// Multiplexer owns the jiffies counter and the pending-event list.
// One hardware timer, many logical timeouts.
type Multiplexer struct {
	mu       sync.Mutex
	jiffies  uint32
	interval uint32
	events   []*Event
	onTick   func() // invoked once per tick after events are processed, drives the scheduler
}

// New returns a Multiplexer with the default interval and no tick
// hook installed.
func New() *Multiplexer {
	return &Multiplexer{interval: defaultIntervalSeconds}
}

// SetTickHook installs the function invoked at the end of every Tick,
// used to deliver a tick to the scheduler.
func (m *Multiplexer) SetTickHook(hook func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTick = hook
}

// Enable arms the hardware core timer and unmasks its interrupt,
// grounded on ARMCoreTimer::enable's CNTP_CTL_EL0/IRQ-mask register
// writes.
func (m *Multiplexer) Enable() {
	mmio.Write32(core0TimerIrqCtrl, 0b0010)
	m.armNext()
}

// Disable masks the core timer interrupt.
func (m *Multiplexer) Disable() {
	mmio.Write32(core0TimerIrqCtrl, 0b0000)
}

func (m *Multiplexer) armNext() {
	// A real boot reads CNTFRQ_EL0 and writes CNTP_TVAL_EL0 =
	// CNTFRQ_EL0 * interval (Timer.cc's arrange_next_timer_irq_after);
	// under simulation there is no physical counter to race against, so
	// Tick is driven directly by the caller instead of by a real IRQ.
}

// AddTimer registers a one-shot event that fires after timeout ticks.
func (m *Multiplexer) AddTimer(message string, timeout uint32, fire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, &Event{Message: message, Timeout: timeout, Fire: fire})
}

// Tick advances jiffies by one, decrements every pending event's
// timeout, fires and removes any event whose timeout reaches zero (in
// insertion order), re-arms the hardware timer, then invokes the
// scheduler tick hook.
func (m *Multiplexer) Tick() {
	m.mu.Lock()
	m.jiffies++

	remaining := m.events[:0]
	for _, ev := range m.events {
		ev.Timeout--
		if ev.Timeout == 0 {
			if ev.Fire != nil {
				ev.Fire()
			}
			continue
		}
		remaining = append(remaining, ev)
	}
	m.events = remaining
	m.armNext()
	hook := m.onTick
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
}

// Jiffies returns the number of ticks observed since boot.
func (m *Multiplexer) Jiffies() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.jiffies
}
