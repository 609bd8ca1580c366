// Package delta computes and applies cross-object deltas: a compact
// encoding of a target blob as a sequence of byte ranges copied from a
// similar base object plus the literal bytes the base doesn't have.
// Field shapes are ported from alexander-storage's delta package,
// re-keyed from string hex hashes to oid.Oid.
package delta

import (
	"github.com/fenilsonani/mediagit/internal/oid"
)

// InstructionType distinguishes a copy-from-base instruction from a
// literal-insert instruction.
type InstructionType int

const (
	InstructionCopy InstructionType = iota
	InstructionInsert
)

// Instruction is one step in reconstructing a target from a base plus
// inserted literal bytes. For InstructionCopy, SourceOffset indexes into
// the base; for InstructionInsert it is unused. TargetOffset always
// indexes into the reconstructed output.
type Instruction struct {
	Type         InstructionType
	SourceOffset int64
	TargetOffset int64
	Length       int64
}

// Delta describes how to reconstruct a target object from a base object.
// SourceHash/BaseHash mirror the original's naming: SourceHash identifies
// the target content this delta reconstructs, BaseHash the object the
// instructions read from.
type Delta struct {
	SourceHash   oid.Oid
	BaseHash     oid.Oid
	Instructions []Instruction
	TotalSize    int64
	DeltaSize    int64
	SavingsRatio float64
}

// beneficialRatio is the maximum delta-size-to-target-size ratio worth
// storing as a delta rather than a full object (spec.md §4.5: a delta
// must be smaller than 80% of the target to be worth the reconstruction
// cost and chain-depth bookkeeping).
const beneficialRatio = 0.80

// IsBeneficial reports whether d's encoded size is small enough, relative
// to its reconstructed size, to be worth storing as a delta instead of a
// full object.
func (d *Delta) IsBeneficial() bool {
	if d.TotalSize <= 0 {
		return false
	}
	return float64(d.DeltaSize) < beneficialRatio*float64(d.TotalSize)
}
