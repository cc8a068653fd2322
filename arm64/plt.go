// Package arm64 holds the instruction-level pattern matching for AArch64
// binaries. It is the only architecture-coupled code in the loading engine.
package arm64

// A PLT stub is a fixed four-instruction, 16-byte idiom:
//
//	adrp x16, <page>
//	ldr  x17, [x16, #<slot>]
//	add  x16, x16, #<slot>
//	br   x17
//
// BrOpcode is the encoding of the trailing `br x17`.
const BrOpcode uint32 = 0xD61F0220

const (
	adrpMask  = 0x9F00001F
	adrpMatch = 0x90000010
	ldrMask   = 0xFFE003FF
	ldrMatch  = 0xF9400211
)

// MatchPltStub decodes the four instruction words of a candidate PLT stub
// beginning at image offset off. It returns the absolute image offset of the
// GOT slot the stub branches through, or ok=false when the words do not form
// the idiom. The add instruction carries no extra information and is not
// checked.
func MatchPltStub(a, b, _, d uint32, off uint64) (target uint64, ok bool) {
	if d != BrOpcode || a&adrpMask != adrpMatch || b&ldrMask != ldrMatch {
		return 0, false
	}
	page := off &^ 0xFFF
	immhi := uint64(a>>5) & 0x7FFFF
	immlo := uint64(a>>29) & 3
	paddr := page + (immlo<<12 | immhi<<14)
	slot := (uint64(b>>10) & 0xFFF) << 3
	return paddr + slot, true
}
