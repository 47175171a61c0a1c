package alteon

// applySteps computes the agApplyConfig values that must be written, in
// order, to commit a pending configuration change: when agApplyPending
// reports 2 (apply needed) and agApplyConfig reports 4 (complete), the
// device requires being nudged to idle (2) before it will accept a fresh
// apply (1). Any other combination needs no further write.
func applySteps(pending, config int) []int {
	const (
		pendingApplyNeeded = 2
		configComplete     = 4
		configIdle         = 2
		configApply        = 1
	)
	if pending == pendingApplyNeeded && config == configComplete {
		return []int{configIdle, configApply}
	}
	return nil
}
