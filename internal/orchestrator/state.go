package orchestrator

// State names one node of the orchestrator's state machine (§4.E):
//
//	Parse -> Compile -> Materialize -> InstallFilter -> StartProxy
//	  -> StartSidecar? -> StartCommand -> Running -> CaptureExit -> Teardown -> Done
type State string

const (
	StateParse         State = "Parse"
	StateCompile       State = "Compile"
	StateMaterialize   State = "Materialize"
	StateInstallFilter State = "InstallFilter"
	StateStartProxy    State = "StartProxy"
	StateStartSidecar  State = "StartSidecar"
	StateStartCommand  State = "StartCommand"
	StateRunning       State = "Running"
	StateCaptureExit   State = "CaptureExit"
	StateTeardown      State = "Teardown"
	StateDone          State = "Done"
)
