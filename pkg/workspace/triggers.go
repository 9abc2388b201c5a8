package workspace

import (
	"time"

	"go.uber.org/zap"
)

// TriggerEnabled reports whether the given auto trigger should fire: it must
// be enabled in the configuration and not currently frozen.
func (w *Workspace) TriggerEnabled(trigger AutoTrigger) bool {
	settings := w.Snapshot().Settings

	enabled := false
	switch trigger {
	case TriggerDeployOnSave:
		enabled = settings.DeployOnSave
	case TriggerDeployOnChange:
		enabled = settings.DeployOnChange
	case TriggerRemoveOnChange:
		enabled = settings.RemoveOnChange
	}
	if !enabled {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.frozen[trigger]
}

// FreezeTrigger suspends one auto trigger until ThawTrigger is called.
func (w *Workspace) FreezeTrigger(trigger AutoTrigger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.freezeLocked(trigger)
}

// ThawTrigger re-enables one auto trigger.
func (w *Workspace) ThawTrigger(trigger AutoTrigger) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.thawLocked(trigger)
}

var allTriggers = []AutoTrigger{TriggerDeployOnSave, TriggerDeployOnChange, TriggerRemoveOnChange}

// freezeAllLocked suspends every auto trigger. Called on entry to a reload,
// with w.mu held.
func (w *Workspace) freezeAllLocked() {
	for _, trigger := range allTriggers {
		w.freezeLocked(trigger)
	}
}

// thawAll re-enables the auto triggers after a successful reload. With a
// positive delay each trigger re-enables itself once the delay elapses, so a
// burst of file events caused by the reload itself does not fire deployments.
func (w *Workspace) thawAll(thawDelayMillis int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if thawDelayMillis <= 0 {
		for _, trigger := range allTriggers {
			w.thawLocked(trigger)
		}
		return
	}

	delay := time.Duration(thawDelayMillis) * time.Millisecond
	for _, trigger := range allTriggers {
		trigger := trigger
		w.thawTimers[trigger] = time.AfterFunc(delay, func() {
			w.log.Debug("auto trigger thawed", zap.Int("trigger", int(trigger)))
			w.ThawTrigger(trigger)
		})
	}
}

func (w *Workspace) freezeLocked(trigger AutoTrigger) {
	if timer := w.thawTimers[trigger]; timer != nil {
		timer.Stop()
		delete(w.thawTimers, trigger)
	}
	w.frozen[trigger] = true
}

func (w *Workspace) thawLocked(trigger AutoTrigger) {
	if timer := w.thawTimers[trigger]; timer != nil {
		timer.Stop()
		delete(w.thawTimers, trigger)
	}
	delete(w.frozen, trigger)
}
