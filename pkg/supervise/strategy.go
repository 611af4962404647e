package supervise

import (
	"github.com/go-go-golems/stackctl/pkg/runtime"
)

type Strategy string

const (
	StrategyRestart            Strategy = "restart"
	StrategyRecreate           Strategy = "recreate"
	StrategyDiagnoseAndRestart Strategy = "diagnose_and_restart"
	StrategyHealthValidate     Strategy = "health_validate"
	StrategyFullRecovery       Strategy = "full_recovery"
)

// Classify picks a strategy from the observed runtime state. An inspect
// error, or any state that does not fit the table, gets FullRecovery.
func Classify(st runtime.State, inspectErr error) Strategy {
	switch {
	case inspectErr != nil:
		return StrategyFullRecovery
	case !st.Found:
		return StrategyRecreate
	case st.Running:
		return StrategyHealthValidate
	case st.Exited() && st.ExitCode != nil:
		if *st.ExitCode == 0 {
			return StrategyRestart
		}
		return StrategyDiagnoseAndRestart
	default:
		return StrategyFullRecovery
	}
}
