package cpu

import "github.com/deanthecoder/gbcore/jeebie/addr"

// Bus is the surface the CPU needs from the rest of the machine. Every
// Read8/Write8 call is expected to tick the clock and all other devices by
// 4 T (or 2 T per CPU-observed 4 T in CGB double-speed), matching the bus
// contract in spec.md 4.2. Tick advances devices for cycles that aren't
// themselves memory accesses (internal ALU cycles, interrupt dispatch,
// HALT/STOP idling). Cycles reports the running T-cycle counter so callers
// can measure how much time a Step() consumed without the CPU needing to
// track it independently.
type Bus interface {
	Read8(address uint16) uint8
	Write8(address uint16, value uint8)
	Tick(tCycles int)
	Cycles() uint64
	IF() uint8
	IE() uint8
	SetIF(value uint8)
	DMAActive() bool
}

// Hooks lets an external debugger observe CPU execution without the core
// depending on any particular debugger implementation (spec.md 4.9).
type Hooks struct {
	BeforeInstruction func(pc uint16, opcode uint8)
	AfterStep         func()
	OnMemoryRead      func(addr uint16, value uint8)
	OnMemoryWrite     func(addr uint16, value uint8)
}

// CPU is the SM83 fetch/decode/execute engine plus interrupt/HALT/STOP
// state (spec.md 3 "CpuState").
type CPU struct {
	Registers

	bus Bus

	ime             bool
	pendingIME      bool
	halted          bool
	stopped         bool
	haltBugPending  bool
	stopAwaitingKey bool
	doubleSpeed     bool

	currentOpcode uint8
	hooks         Hooks
}

// New creates a CPU wired to the given bus. Register state is left zeroed;
// callers load a boot-state snapshot (or run the boot ROM) separately.
func New(bus Bus) *CPU {
	return &CPU{bus: bus}
}

// SetHooks installs optional debugger callbacks.
func (c *CPU) SetHooks(h Hooks) { c.hooks = h }

// IME reports whether the interrupt master enable flag is set.
func (c *CPU) IME() bool { return c.ime }

// SetIME force-sets the interrupt master enable flag (used by snapshot restore).
func (c *CPU) SetIME(v bool) { c.ime = v; c.pendingIME = false }

// Halted reports whether the CPU is in the HALT low-power state.
func (c *CPU) Halted() bool { return c.halted }

// Stopped reports whether the CPU is in the STOP low-power state.
func (c *CPU) Stopped() bool { return c.stopped }

// DoubleSpeed reports the CGB KEY1 double-speed state.
func (c *CPU) DoubleSpeed() bool { return c.doubleSpeed }

// SetDoubleSpeed is used by the bus when a STOP toggles KEY1.
func (c *CPU) SetDoubleSpeed(v bool) { c.doubleSpeed = v }

func (c *CPU) GetPC() uint16 { return c.PC }
func (c *CPU) GetSP() uint16 { return c.SP }

func (c *CPU) read8(a uint16) uint8 {
	v := c.bus.Read8(a)
	if c.hooks.OnMemoryRead != nil {
		c.hooks.OnMemoryRead(a, v)
	}
	return v
}

func (c *CPU) write8(a uint16, v uint8) {
	c.bus.Write8(a, v)
	if c.hooks.OnMemoryWrite != nil {
		c.hooks.OnMemoryWrite(a, v)
	}
}

// Step implements the machine step loop from spec.md 4.10: HALT idling,
// OAM DMA CPU stall, interrupt service, then fetch/decode/execute. It
// returns the number of T-cycles the bus advanced during this call.
func (c *CPU) Step() int {
	before := c.bus.Cycles()

	switch {
	case c.halted:
		if (c.bus.IF() & c.bus.IE() & 0x1F) != 0 {
			c.halted = false
		} else {
			c.bus.Tick(4)
			return int(c.bus.Cycles() - before)
		}

	case c.bus.DMAActive():
		c.bus.Tick(4)
		return int(c.bus.Cycles() - before)
	}

	if c.ime && (c.bus.IF()&c.bus.IE()&0x1F) != 0 {
		c.serviceInterrupt()
		return int(c.bus.Cycles() - before)
	}

	wasPending := c.pendingIME
	c.execOne()
	if wasPending {
		c.ime = true
		c.pendingIME = false
	}

	if c.hooks.AfterStep != nil {
		c.hooks.AfterStep()
	}

	return int(c.bus.Cycles() - before)
}

// serviceInterrupt pushes PC, clears IME and the serviced IF bit, and jumps
// to the vector for the highest-priority (lowest bit) pending interrupt.
// Costs 20 T total (5 M-cycles): 2 internal cycles to recognize and branch,
// 2 push writes (4T each, self-ticked), and 1 internal cycle to load PC
// with the vector address.
func (c *CPU) serviceInterrupt() {
	pending := c.bus.IF() & c.bus.IE() & 0x1F
	var bitPos uint8
	for bitPos = 0; bitPos < 5; bitPos++ {
		if pending&(1<<bitPos) != 0 {
			break
		}
	}

	c.ime = false
	c.bus.Tick(8)

	c.SP--
	c.write8(c.SP, uint8(c.PC>>8))
	c.SP--
	c.write8(c.SP, uint8(c.PC))

	c.bus.SetIF(c.bus.IF() &^ (1 << bitPos))
	c.PC = addr.InterruptVector(bitPos)
	c.bus.Tick(4)
}
