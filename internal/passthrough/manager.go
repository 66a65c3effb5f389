// Package passthrough locates HAL implementations that run in the
// caller's process: shared objects named <package@M.m>-impl*.so looked
// up through a HIDL_FETCH_<Iface> entry point, probed across the
// configured library directories in priority order.
package passthrough

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hidl-lang/hidl/internal/cli"
	"github.com/hidl-lang/hidl/internal/fqn"
)

// fetchPrefix is the entry-point symbol prefix generated bindings
// export from implementation libraries.
const fetchPrefix = "HIDL_FETCH_"

// DefaultSearchDirs is the probe order: ODM overrides vendor, vendor
// overrides the VNDK snapshot, the system image comes last.
var DefaultSearchDirs = []string{
	"/odm/lib64/hw/",
	"/vendor/lib64/hw/",
	"/system/lib64/vndk-sp/hw/",
	"/system/lib64/hw/",
}

// Handle is an opaque reference to an opened implementation library.
type Handle interface{}

// FetchFn is the resolved entry point: it constructs the implementation
// registered under the given instance name, or returns nil.
type FetchFn func(instance string) interface{}

// Loader abstracts the dynamic-library mechanism. Every probe that does
// not produce a service closes its handle before the next candidate is
// tried.
type Loader interface {
	Open(path string) (Handle, error)
	Resolve(h Handle, symbol string) (FetchFn, error)
	Close(h Handle)
}

// Manager resolves passthrough services. Safe for concurrent use as
// long as the Loader is.
type Manager struct {
	dirs   []string
	loader Loader
	sm     *ServiceManager
	log    *cli.Logger
}

// NewManager builds a Manager probing dirs in order. A nil dirs slice
// selects DefaultSearchDirs; a nil sm selects the process-wide default.
func NewManager(dirs []string, loader Loader, sm *ServiceManager, log *cli.Logger) *Manager {
	if dirs == nil {
		dirs = DefaultSearchDirs
	}
	if sm == nil {
		sm = DefaultServiceManager()
	}
	if log == nil {
		log = cli.NewLogger(false, false)
	}
	return &Manager{dirs: dirs, loader: loader, sm: sm, log: log}
}

// Get resolves fqName ("package@M.m::IFace") to a loaded implementation
// for the given instance. Candidates are files named
// "<package>@<M.m>-impl*.so"; the first whose fetch function returns
// non-nil wins. Every hit is registered with the service manager as a
// passthrough client.
func (m *Manager) Get(fqName, instance string) (interface{}, error) {
	fq, err := fqn.Parse(fqName)
	if err != nil {
		return nil, err
	}
	if !fq.IsFullyQualified() {
		return nil, fmt.Errorf("%s does not name an interface", fqName)
	}
	prefix := fmt.Sprintf("%s@%s-impl", fq.Package, fq.Version())
	symbol := fetchPrefix + fq.Name()

	for _, dir := range m.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			name := entry.Name()
			if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".so") {
				continue
			}
			path := filepath.Join(dir, name)
			service := m.probe(path, symbol, instance)
			if service == nil {
				continue
			}
			m.sm.RegisterPassthroughClient(fqName, instance)
			return service, nil
		}
	}
	return nil, fmt.Errorf("no passthrough implementation of %s/%s in %v",
		fqName, instance, m.dirs)
}

// probe opens one candidate and releases the handle on every failure
// path; only a successful fetch keeps the library loaded.
func (m *Manager) probe(path, symbol, instance string) interface{} {
	h, err := m.loader.Open(path)
	if err != nil {
		m.log.Warn("failed to load %s: %v", path, err)
		return nil
	}
	fn, err := m.loader.Resolve(h, symbol)
	if err != nil {
		m.log.Warn("%s does not export %s: %v", path, symbol, err)
		m.loader.Close(h)
		return nil
	}
	service := fn(instance)
	if service == nil {
		m.log.Warn("%s returned no service for instance %q", symbol, instance)
		m.loader.Close(h)
		return nil
	}
	m.log.Info("loaded %s from %s", symbol, path)
	return service
}
