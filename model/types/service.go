package types

// Service groups named functions that jobs can reference by
// "service/method" identifier.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Func, error)
}
