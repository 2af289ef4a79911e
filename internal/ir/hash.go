package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed fingerprints.
// Version suffix enables future algorithm migration.
const (
	DomainExpr     = "spinql/expr/v1"
	DomainLibrary  = "spinql/library/v1"
	DomainSolution = "spinql/solution/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint hashes the canonical JSON form of v under domain.
func Fingerprint(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("Fingerprint(%s): failed to marshal: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// LibraryHash computes the content hash of a compiled function library.
// Libraries with the same functions hash identically regardless of the
// order the functions were declared in.
func LibraryHash(lib Library) (string, error) {
	fns := make(map[string]any, len(lib.Functions))
	for _, fn := range lib.Functions {
		fns[fn.URI] = fn.canonical()
	}
	return Fingerprint(DomainLibrary, map[string]any{
		"base_uri":   lib.BaseURI,
		"functions":  fns,
		"ir_version": IRVersion,
	})
}

// SolutionHash computes a stable identity for a variable binding row.
func SolutionHash(bindings map[string]Value) (string, error) {
	obj := make(map[string]any, len(bindings))
	for k, v := range bindings {
		if v == nil {
			continue
		}
		obj[k] = v
	}
	return Fingerprint(DomainSolution, obj)
}

// MustLibraryHash is like LibraryHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustLibraryHash(lib Library) string {
	h, err := LibraryHash(lib)
	if err != nil {
		panic(err)
	}
	return h
}
