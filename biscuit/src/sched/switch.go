package sched

import "proc"

// switch_to is implemented in switch_arm64.s. It saves the callee-saved
// context of the outgoing task and restores that of the incoming one,
// returning into the incoming task's saved PC.
func switch_to(prevCtx, nextCtx *proc.Context_t)

// SwitchTo performs the actual register-level transfer for a
// (prev, next) pair returned by Schedule. The caller (the trap return
// path) is expected to have already updated the current-task pointer.
func SwitchTo(prev, next *proc.Task_t) {
	if prev == next || next == nil {
		return
	}
	switch_to(&prev.Ctx, &next.Ctx)
}
