package types

import "context"

type Signatures []Signature

func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Signature method signature
type Signature struct {
	Name        string
	Description string
}

// Func is the executable body of a job. The returned value becomes the
// result stored in the job's slot.
type Func func(ctx context.Context, args *Args) (interface{}, error)
