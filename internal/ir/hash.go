package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainProgram separates program hashes from any other SHA-256 use.
// The version suffix allows the dump layout to change later.
const DomainProgram = "bir/program/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ProgramHash returns the content address of p. Two programs hash equal
// exactly when their canonical dumps are byte-identical.
func ProgramHash(p *Program) (string, error) {
	canonical, err := MarshalCanonical(Dump(p))
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}

// MustProgramHash is like ProgramHash but panics on error.
// Use only in tests or when p is known to be valid.
func MustProgramHash(p *Program) string {
	h, err := ProgramHash(p)
	if err != nil {
		panic(err)
	}
	return h
}
