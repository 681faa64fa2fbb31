// Package value defines the opaque unit of data on which a Tendermint core
// reaches consensus. The core never inspects a Value's contents; it only
// ever compares Values by their ID.
package value

import (
	"encoding/base64"

	"github.com/renproject/id"
	"golang.org/x/crypto/sha3"
)

// ID is the deterministic, injective identifier of a Value, as returned by
// the id(v) predicate in the consensus algorithm. The zero ID also serves as
// the identifier of the nil value (⊥), so that prevotes/precommits for ⊥ can
// be indexed the same way as prevotes/precommits for a real Value.
type ID = id.Hash

// NilID is the identifier reserved for the nil value (⊥). It is always the
// zero Hash; a real Value must never hash to this (collisions would break
// safety, as spec'd).
var NilID = id.Hash{}

// A Value is an opaque payload proposed by getValue() and agreed upon by the
// consensus core.
type Value struct {
	id      ID
	payload []byte
}

// Nil is the ⊥ placeholder value used in prevotes/precommits to signal "no
// value" without blocking consensus.
var Nil = Value{id: NilID}

// New computes a Value's ID by hashing its payload, mirroring
// block.ComputeHash's use of sha3.Sum256 over a value's serialised form.
func New(payload []byte) Value {
	return Value{
		id:      sha3.Sum256(payload),
		payload: payload,
	}
}

// ID returns the Value's identifier, id(v).
func (v Value) ID() ID {
	return v.id
}

// Payload returns the raw bytes underlying the Value.
func (v Value) Payload() []byte {
	return v.payload
}

// IsNil reports whether this Value is the ⊥ placeholder.
func (v Value) IsNil() bool {
	return v.id == NilID
}

// Equal compares two Values by ID, per id(v)'s determinism/injectivity
// contract.
func (v Value) Equal(other Value) bool {
	return v.id == other.id
}

// String implements fmt.Stringer for debug logging.
func (v Value) String() string {
	if v.IsNil() {
		return "<nil>"
	}
	return base64.RawStdEncoding.EncodeToString(v.id[:8])
}

// A Validator decides whether a proposed Value is acceptable. valid(⊥) is
// never evaluated by the core (spec §4.1 tie-break notes).
type Validator interface {
	Valid(Value) bool
}

// ValidatorFunc adapts a function to the Validator interface.
type ValidatorFunc func(Value) bool

// Valid implements Validator.
func (f ValidatorFunc) Valid(v Value) bool { return f(v) }

// A Proposer produces new Values for a proposer to broadcast. Called only
// when the process has no validValue carried over from a previous round.
type Proposer interface {
	Propose() Value
}

// ProposerFunc adapts a function to the Proposer interface.
type ProposerFunc func() Value

// Propose implements Proposer.
func (f ProposerFunc) Propose() Value { return f() }
