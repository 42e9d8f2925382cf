package extension

import (
	"fmt"
	"sort"
	"sync"

	"github.com/viant/batcher/model/types"
)

// Functions provides registered services
type Functions struct {
	services map[string]types.Service
	mux      sync.RWMutex
}

// Lookup returns a service by name
func (s *Functions) Lookup(name string) types.Service {
	s.mux.RLock()
	defer s.mux.RUnlock()
	return s.services[name]
}

// Register registers services, a service registered under an existing name replaces it
func (s *Functions) Register(services ...types.Service) {
	s.mux.Lock()
	defer s.mux.Unlock()
	for _, service := range services {
		if service == nil {
			continue
		}
		s.services[service.Name()] = service
	}
}

// Resolve returns the function for the service and method pair
func (s *Functions) Resolve(service, method string) (types.Func, error) {
	aService := s.Lookup(service)
	if aService == nil {
		return nil, fmt.Errorf("service %v not found", service)
	}
	if method == "" {
		return nil, fmt.Errorf("method not found for service %v", service)
	}
	fn, err := aService.Method(method)
	if err != nil {
		return nil, fmt.Errorf("failed to find method %v for service %v: %w", method, service, err)
	}
	return fn, nil
}

// Names returns sorted "service/method" identifiers of all registered functions
func (s *Functions) Names() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var ret []string
	for name, service := range s.services {
		for _, signature := range service.Methods() {
			ret = append(ret, name+"/"+signature.Name)
		}
	}
	sort.Strings(ret)
	return ret
}

// NewFunctions creates a new function registry
func NewFunctions(services ...types.Service) *Functions {
	ret := &Functions{services: make(map[string]types.Service)}
	ret.Register(services...)
	return ret
}
