package cpu

// fakeBus is a minimal Bus implementation for unit-testing the CPU in
// isolation from memory.MMU. Read8/Write8 self-tick 4T per access, matching
// the real Bus contract, so cycle-accounting assertions stay meaningful.
type fakeBus struct {
	mem       [65536]uint8
	cycles    uint64
	ifReg     uint8
	ieReg     uint8
	dmaActive bool
}

func newFakeBus() *fakeBus {
	return &fakeBus{}
}

func (b *fakeBus) Read8(a uint16) uint8 {
	b.cycles += 4
	return b.mem[a]
}

func (b *fakeBus) Write8(a uint16, v uint8) {
	b.cycles += 4
	b.mem[a] = v
}

func (b *fakeBus) Tick(tCycles int) { b.cycles += uint64(tCycles) }
func (b *fakeBus) Cycles() uint64   { return b.cycles }
func (b *fakeBus) IF() uint8        { return b.ifReg }
func (b *fakeBus) IE() uint8        { return b.ieReg }
func (b *fakeBus) SetIF(v uint8)    { b.ifReg = v }
func (b *fakeBus) DMAActive() bool  { return b.dmaActive }
