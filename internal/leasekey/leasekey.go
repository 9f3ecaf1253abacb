// Package leasekey packs and unpacks the 64-bit identifiers the lease
// compiler threads through every other package: phase, address,
// phase_ref, set, and set_phase_ref, as laid out in the data model.
//
// These packings are contract, not convenience — downstream consumers
// (the LLT emitter, the pruner) depend on extracting phase as
// (id>>24)&0xFF and address as id&0x00FFFFFF, so the ranges are
// validated rather than silently truncated.
package leasekey

import "fmt"

const (
	// MaxPhase is the largest representable phase id (8 bits).
	MaxPhase = 0xFF
	// MaxAddress is the largest representable reference tag (24 bits).
	MaxAddress = 0x00FFFFFF
	// MaxSet is the largest representable cache set number (8 bits).
	MaxSet = 0xFF

	phaseShift = 24
	setShift   = 32
	phaseMask  = uint64(MaxPhase) << phaseShift
	addrMask   = uint64(MaxAddress)
	refMask    = phaseMask | addrMask
	setMask    = uint64(MaxSet) << setShift
)

// PackPhaseRef packs a phase id and a 24-bit address into a phase_ref.
func PackPhaseRef(phase, address uint64) (uint64, error) {
	if phase > MaxPhase {
		return 0, fmt.Errorf("leasekey: phase %d exceeds 8-bit range (max %d)", phase, MaxPhase)
	}
	if address > MaxAddress {
		return 0, fmt.Errorf("leasekey: address %#x exceeds 24-bit range (max %#x)", address, MaxAddress)
	}
	return (phase << phaseShift) | address, nil
}

// UnpackPhase extracts the phase id from any packed id containing a
// phase_ref in its low 32 bits (phase_ref or set_phase_ref).
func UnpackPhase(id uint64) uint64 {
	return (id & phaseMask) >> phaseShift
}

// UnpackAddress extracts the 24-bit reference tag from any packed id.
func UnpackAddress(id uint64) uint64 {
	return id & addrMask
}

// UnpackPhaseRef strips the set field, leaving just phase and address.
func UnpackPhaseRef(id uint64) uint64 {
	return id & refMask
}

// UnpackSet extracts the cache-set number from a set_phase_ref.
func UnpackSet(id uint64) uint64 {
	return (id & setMask) >> setShift
}

// PackSetPhaseRef combines a cache set with a phase_ref into the full
// 64-bit set_phase_ref used to key per-set histograms and budgets.
func PackSetPhaseRef(set, phaseRef uint64) (uint64, error) {
	if set > MaxSet {
		return 0, fmt.Errorf("leasekey: set %d exceeds 8-bit range (max %d)", set, MaxSet)
	}
	if phaseRef&^refMask != 0 {
		return 0, fmt.Errorf("leasekey: phase_ref %#x has bits outside the phase/address fields", phaseRef)
	}
	return (set << setShift) | phaseRef, nil
}
