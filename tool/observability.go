package tool

import "sync"

// InvokeObservation captures one operation invocation outcome.
type InvokeObservation struct {
	Operation   string
	Integration string
	DurationMS  int64
	Success     bool
	ErrorCode   string
}

// RegistrationObservation captures one integration's startup outcome.
type RegistrationObservation struct {
	Integration string
	Loaded      bool
	Operations  int
	ErrorCode   string
}

// AvailabilityObservation captures one availability recheck.
type AvailabilityObservation struct {
	Integration string
	Available   bool
	Previous    bool
	Changed     bool
	ErrorCode   string
}

// Observer receives gateway observability events.
type Observer interface {
	ObserveInvoke(observation InvokeObservation)
	ObserveRegistration(observation RegistrationObservation)
	ObserveAvailability(observation AvailabilityObservation)
}

type noopObserver struct{}

func (noopObserver) ObserveInvoke(InvokeObservation)             {}
func (noopObserver) ObserveRegistration(RegistrationObservation) {}
func (noopObserver) ObserveAvailability(AvailabilityObservation) {}

var (
	observerMu     sync.RWMutex
	activeObserver Observer = noopObserver{}
)

// SetObserver sets the process-wide observer. nil restores the no-op observer.
func SetObserver(observer Observer) {
	observerMu.Lock()
	defer observerMu.Unlock()
	if observer == nil {
		activeObserver = noopObserver{}
		return
	}
	activeObserver = observer
}

func currentObserver() Observer {
	observerMu.RLock()
	defer observerMu.RUnlock()
	return activeObserver
}

func emitInvokeObservation(observation InvokeObservation) {
	currentObserver().ObserveInvoke(observation)
}

func emitRegistrationObservation(observation RegistrationObservation) {
	currentObserver().ObserveRegistration(observation)
}

func emitAvailabilityObservation(observation AvailabilityObservation) {
	currentObserver().ObserveAvailability(observation)
}
