package objfmt

// Pool-class boundary contract. The pool that owns and reclaims object
// memory is an external collaborator; this file only declares the typed
// extension surface it exposes, so that embedding code can construct a
// pool over this format. Nothing in this package calls these.

// FindDependentFunc maps an object address to the address of its
// "dependent" object, for pools that keep weak-link bookkeeping (a weak
// table's strong half, for example). A nil result means no dependent.
type FindDependentFunc func(addr Addr) Addr

// PoolKey identifies a typed keyword argument for pool construction.
type PoolKey int

// KeyFindDependent requests a dependent-lookup method from the client
// format when constructing a weak-capable pool.
const KeyFindDependent PoolKey = 1

// PoolOption is one keyword argument for pool-class construction.
type PoolOption struct {
	Key           PoolKey
	FindDependent FindDependentFunc
}

// WithFindDependent builds the KeyFindDependent option.
func WithFindDependent(fn FindDependentFunc) PoolOption {
	return PoolOption{Key: KeyFindDependent, FindDependent: fn}
}

// NoDependent is the default dependent lookup: no object of this format
// has a dependent.
func NoDependent(addr Addr) Addr {
	return nil
}
