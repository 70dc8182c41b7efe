// Package idgen provides pluggable ID generation. Constructors across
// treescope accept a Generator so the ID strategy stays a startup-time
// decision: capture envelopes want sortable UUIDv7, retained-object tokens
// want short prefixed ids.
package idgen

import (
	"crypto/rand"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// UUIDv7 returns a Generator producing RFC 9562 UUID v7 strings,
// time-sortable and globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Short returns a Generator producing base-36 ids of the given length, for
// places where a UUID is too verbose (object tokens).
func Short(length int) Generator {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	// Largest multiple of len(alphabet) that fits in a byte. Bytes above
	// it are redrawn so every character stays equally likely.
	const limit = 252
	return func() string {
		out := make([]byte, 0, length)
		buf := make([]byte, length)
		for len(out) < length {
			if _, err := rand.Read(buf); err != nil {
				panic("idgen: crypto/rand failed: " + err.Error())
			}
			for _, b := range buf {
				if b >= limit {
					continue
				}
				out = append(out, alphabet[int(b)%len(alphabet)])
				if len(out) == length {
					break
				}
			}
		}
		return string(out)
	}
}

// Prefixed prepends a fixed prefix to every id from gen.
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Default is the module default: UUIDv7.
var Default Generator = UUIDv7()

// New produces an id using the Default generator.
func New() string {
	return Default()
}
