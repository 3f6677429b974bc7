package scheduler

// Slot holds at most one live task for a single role (a notifier, a checker,
// a driver run). Replacing the task cancels the previous one first, so two
// tasks for the same role can never be live at once.
//
// Slot is not safe for concurrent use; callers guard it with their own lock.
type Slot struct {
	task *Task
}

// Replace cancels any existing task and stores the new one.
func (s *Slot) Replace(task *Task) {
	if s.task != nil {
		s.task.Cancel()
	}
	s.task = task
}

// Stop cancels and clears the current task. It reports whether a live task
// was stopped.
func (s *Slot) Stop() bool {
	if s.task == nil {
		return false
	}
	live := !s.task.Cancelled()
	s.task.Cancel()
	s.task = nil
	return live
}

// Active reports whether the slot holds a task that has not been cancelled.
func (s *Slot) Active() bool {
	return s.task != nil && !s.task.Cancelled()
}

// Holds reports whether task is the one currently in the slot.
func (s *Slot) Holds(task *Task) bool {
	return task != nil && s.task == task
}
