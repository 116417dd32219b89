package uow

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

type tokenKind uint8

const (
	tokenInvalid tokenKind = iota
	tokenByName
	tokenBySymbol
	tokenByType
)

// Token identifies a registered repository. It is a closed union of three
// namespaces that never collide: names, process-unique symbols, and Go types.
// The zero Token is invalid and rejected by the registry.
type Token struct {
	kind    tokenKind
	key     string
	display string
}

// ByName builds a token keyed by a caller-chosen name.
func ByName(name string) Token {
	return Token{
		kind:    tokenByName,
		key:     "name:" + name,
		display: name,
	}
}

var symbolSeq atomic.Uint64

// NewSymbol builds a fresh, process-unique token. Two symbols are never equal,
// even when created with the same description; the description is for humans.
func NewSymbol(description string) Token {
	id := symbolSeq.Add(1)
	return Token{
		kind:    tokenBySymbol,
		key:     fmt.Sprintf("symbol:%d", id),
		display: fmt.Sprintf("%s#%d", description, id),
	}
}

// ByType builds a token keyed by the repository's Go type. The key includes
// the full import path, so two types sharing a short name do not collide.
func ByType[T any]() Token {
	t := reflect.TypeOf((*T)(nil)).Elem()
	id := typeID(t)
	return Token{
		kind:    tokenByType,
		key:     "type:" + id,
		display: id,
	}
}

func typeID(t reflect.Type) string {
	if pkg := t.PkgPath(); pkg != "" {
		return pkg + "." + t.Name()
	}
	return t.String()
}

// Key returns the normalized registry key.
func (t Token) Key() string { return t.key }

// IsZero reports whether the token was not built by one of the constructors.
func (t Token) IsZero() bool { return t.kind == tokenInvalid }

// String returns the human-readable form used in error messages.
func (t Token) String() string { return t.display }
