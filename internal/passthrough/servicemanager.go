package passthrough

import (
	"sync"
	"time"

	"github.com/hidl-lang/hidl/internal/cli"
)

// ServiceManager is the process-wide registry clients report to. The
// real registry lives in hwservicemanager; this mirror records which
// passthrough implementations this process has loaded, which the
// debugging surface lists.
type ServiceManager struct {
	mu      sync.Mutex
	clients map[string][]string // fqName -> instance names
	log     *cli.Logger
}

var (
	defaultSM   *ServiceManager
	defaultSMMu sync.Mutex
)

// DefaultServiceManager returns the lazily created shared instance.
func DefaultServiceManager() *ServiceManager {
	defaultSMMu.Lock()
	defer defaultSMMu.Unlock()
	if defaultSM == nil {
		defaultSM = NewServiceManager(nil)
	}
	return defaultSM
}

func NewServiceManager(log *cli.Logger) *ServiceManager {
	if log == nil {
		log = cli.NewLogger(false, false)
	}
	return &ServiceManager{clients: make(map[string][]string), log: log}
}

// RegisterPassthroughClient records that this process loaded the given
// service in passthrough mode. Duplicate registrations collapse.
func (s *ServiceManager) RegisterPassthroughClient(fqName, instance string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.clients[fqName] {
		if existing == instance {
			return
		}
	}
	s.clients[fqName] = append(s.clients[fqName], instance)
	s.log.Info("registered passthrough client %s/%s", fqName, instance)
}

// PassthroughClients lists the instances registered for fqName.
func (s *ServiceManager) PassthroughClients(fqName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.clients[fqName]...)
}

// WaitUntilReady polls isReady once per second until it reports true,
// logging each retry. Only process exit cancels the loop.
func WaitUntilReady(isReady func() bool, log *cli.Logger) {
	if log == nil {
		log = cli.NewLogger(false, false)
	}
	for !isReady() {
		log.Warn("service manager is not ready yet, retrying")
		time.Sleep(time.Second)
	}
}
