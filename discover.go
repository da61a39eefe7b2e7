package sqlmap

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownPackage is returned by Discover for a package nobody registered.
var ErrUnknownPackage = errors.New("sqlmap: unknown package")

var (
	packagesMu sync.RWMutex
	packages   = make(map[string][]Interface)
)

// RegisterPackage makes interface declarations discoverable under pkg. It is
// meant to be called from the init function of the package declaring them:
//
//	func init() {
//	    sqlmap.RegisterPackage("users", UsersInterface)
//	}
//
// Registering the same interface name twice in one package panics.
func RegisterPackage(pkg string, ifaces ...Interface) {
	packagesMu.Lock()
	defer packagesMu.Unlock()
	for _, iface := range ifaces {
		for _, have := range packages[pkg] {
			if have.Name == iface.Name {
				panic("sqlmap: RegisterPackage called twice for " + pkg + "." + iface.Name)
			}
		}
		packages[pkg] = append(packages[pkg], iface)
	}
}

// Discover returns the interfaces registered under pkg, sorted by name.
func Discover(pkg string) ([]Interface, error) {
	packagesMu.RLock()
	defer packagesMu.RUnlock()
	ifaces, ok := packages[pkg]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, pkg)
	}
	out := append([]Interface(nil), ifaces...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Packages lists the registered package names, sorted.
func Packages() []string {
	packagesMu.RLock()
	defer packagesMu.RUnlock()
	names := make([]string, 0, len(packages))
	for n := range packages {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
