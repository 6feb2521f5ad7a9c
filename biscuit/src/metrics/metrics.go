// Package metrics owns the kernel-wide Prometheus registry and the
// collector set every subsystem reports into, so that procfs's
// /proc/metrics file and any future exporter read from one shared
// source of truth instead of each package hand-rolling its own
// registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Set is the fixed collector set this kernel reports. New counters
// belong here, not scattered across subsystem packages, so /proc/metrics
// always reflects everything currently tracked.
type Set struct {
	Registry *prometheus.Registry

	PagesAllocated prometheus.Gauge
	CowFaults      prometheus.Counter
	CtxSwitches    prometheus.Counter
	SyscallsTotal  prometheus.Counter
	TimerTicks     prometheus.Counter
}

// New builds a Set registered against a fresh Prometheus registry.
func New() *Set {
	reg := prometheus.NewRegistry()
	s := &Set{
		Registry: reg,
		PagesAllocated: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kernel_pages_allocated", Help: "Physical pages currently allocated from the buddy allocator.",
		}),
		CowFaults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_cow_faults_total", Help: "Copy-on-write faults serviced.",
		}),
		CtxSwitches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_context_switches_total", Help: "Voluntary and preemptive context switches.",
		}),
		SyscallsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_syscalls_total", Help: "Syscalls dispatched by the syscall table.",
		}),
		TimerTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "kernel_timer_ticks_total", Help: "Hardware timer ticks observed.",
		}),
	}
	reg.MustRegister(s.PagesAllocated, s.CowFaults, s.CtxSwitches, s.SyscallsTotal, s.TimerTicks)
	return s
}
