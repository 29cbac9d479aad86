package memory

import (
	"fmt"
	"log/slog"

	"github.com/deanthecoder/gbcore/jeebie/addr"
	"github.com/deanthecoder/gbcore/jeebie/audio"
	"github.com/deanthecoder/gbcore/jeebie/bit"
	"github.com/deanthecoder/gbcore/jeebie/serial"
)

type memRegion uint8

const (
	regionROM memRegion = iota
	regionVRAM
	regionExtRAM
	regionWRAM
	regionEcho
	regionOAM
	regionUnused
	regionIO
)

// Mode selects DMG vs CGB bus semantics (bank counts, register masks).
type Mode uint8

const (
	ModeDMG Mode = iota
	ModeCGB
)

// JoypadKey represents a key on the Gameboy joypad
type JoypadKey uint8

const (
	JoypadRight JoypadKey = iota
	JoypadLeft
	JoypadUp
	JoypadDown
	JoypadA
	JoypadB
	JoypadSelect
	JoypadStart
)

// SerialPort is the minimal interface for a serial device connected to SB/SC.
// Implementations MUST only accept reads/writes to addr.SB and addr.SC.
type SerialPort interface {
	Write(address uint16, value byte)
	Read(address uint16) byte
	Tick(cycles int)
	Reset()
}

// MMU allows access to all memory mapped I/O and data/registers. It performs
// the address decoding spec.md 4.2 describes and owns every memory-mapped
// device (VRAM, WRAM, OAM, HRAM, IO, MBC, APU, Timer, Joypad, OAM DMA,
// Serial). It implements cpu.Bus via Read8/Write8/Tick/Cycles/IF/IE/SetIF/
// DMAActive so cpu.CPU can drive it directly.
type MMU struct {
	cart      *Cartridge
	mbc       MBC
	mode      Mode
	regionMap [256]memRegion

	vram     [2][0x2000]byte
	vramBank uint8

	wram     [8][0x1000]byte
	wramBank uint8 // 0 is treated as 1, per spec.md 4.4

	oam  [0xA0]byte
	hram [0x7F]byte
	io   [0x80]byte // FF00-FF7F raw register backing store for anything not device-routed

	ifReg uint8
	ieReg uint8

	cycles      uint64
	doubleSpeed bool

	APU *audio.APU

	joypadButtons uint8
	joypadDpad    uint8

	serial SerialPort
	timer  Timer
	dma    OAMDMA

	bgPalette  cgbPaletteRAM
	objPalette cgbPaletteRAM
}

// New creates a new memory unit with default data, i.e. nothing cartridge loaded.
// Equivalent to turning on a Gameboy without a cartridge in.
func New() *MMU {
	mmu := &MMU{
		cart:          NewCartridge(),
		APU:           audio.New(),
		joypadButtons: 0x0F,
		joypadDpad:    0x0F,
	}
	mmu.serial = serial.NewLogSink(func() { mmu.RequestInterrupt(addr.SerialInterrupt) })
	mmu.timer.TimerInterruptHandler = func() { mmu.RequestInterrupt(addr.TimerInterrupt) }
	initRegionMap(mmu)
	return mmu
}

// SetMode selects DMG or CGB bus semantics. Switching to DMG forces VRAM
// bank 0, per spec.md 4.4 "SetMode(DMG) forces bank 0".
func (m *MMU) SetMode(mode Mode) {
	m.mode = mode
	if mode == ModeDMG {
		m.vramBank = 0
	}
}

func (m *MMU) Mode() Mode { return m.mode }

// Tick advances every device that isn't itself a bus access: timer, serial,
// APU, and the OAM DMA engine's byte-at-a-time progress. It is also the
// single point Read8/Write8 route through after performing their access, so
// a CPU bus access and an internal-only Tick cost devices identically.
func (m *MMU) Tick(cycles int) {
	deviceCycles := cycles
	if m.doubleSpeed {
		deviceCycles = cycles / 2
	}

	m.cycles += uint64(cycles)
	m.timer.Tick(cycles)
	if m.serial != nil {
		m.serial.Tick(cycles)
	}
	m.APU.Tick(deviceCycles)
	m.dma.Tick(cycles, m)
}

// Cycles reports the running T-cycle counter.
func (m *MMU) Cycles() uint64 { return m.cycles }

// IF returns the raw interrupt flag register.
func (m *MMU) IF() uint8 { return m.ifReg | 0xE0 }

// IE returns the raw interrupt enable register.
func (m *MMU) IE() uint8 { return m.ieReg }

// SetIF overwrites the interrupt flag register (used by the CPU to clear a
// serviced bit).
func (m *MMU) SetIF(value uint8) { m.ifReg = value & 0x1F }

// DMAActive reports whether the OAM DMA engine is still transferring,
// during which the CPU may not fetch or execute (spec.md 4.5).
func (m *MMU) DMAActive() bool { return m.dma.active }

// Read8 and Write8 are the CPU-facing bus access: each one self-ticks the
// whole machine by 4 T (spec.md 4.2), matching the cpu.Bus contract.
func (m *MMU) Read8(address uint16) uint8 {
	v := m.Read(address)
	m.Tick(4)
	return v
}

func (m *MMU) Write8(address uint16, value uint8) {
	m.Write(address, value)
	m.Tick(4)
}

// SetTimerSeed initializes the internal timer divider seed and DIV register.
func (m *MMU) SetTimerSeed(seed uint16) {
	m.timer.SetSeed(seed)
}

// NewWithCartridge creates a new memory unit with the provided cartridge
// data loaded, selecting (and constructing) the appropriate MBC. Returns an
// error wrapping ErrUnsupportedCartridge when the header names an MBC this
// build cannot construct for lack of a matching bank count.
func NewWithCartridge(cart *Cartridge) (*MMU, error) {
	mmu := New()
	mmu.cart = cart
	if cart.isCGB {
		mmu.SetMode(ModeCGB)
	}

	switch cart.mbcType {
	case NoMBCType:
		mmu.mbc = NewNoMBC(cart.data, cart.ramBankCount)
	case MBC1Type, MBC1MultiType:
		mmu.mbc = NewMBC1(cart.data, cart.hasBattery, cart.ramBankCount)
	case MBC2Type:
		mmu.mbc = NewMBC2(cart.data)
	case MBC3Type:
		mmu.mbc = NewMBC3(cart.data, cart.hasRTC, cart.ramBankCount)
	case MBC5Type:
		mmu.mbc = NewMBC5(cart.data, cart.hasRumble, cart.ramBankCount)
	default:
		return nil, fmt.Errorf("memory: %w: cartridge type 0x%02X", ErrUnsupportedCartridge, cart.cartType)
	}

	slog.Info("cartridge loaded", "title", cart.title, "mbc", cart.mbcType, "rom_banks", cart.romBankCount, "ram_banks", cart.ramBankCount, "cgb", cart.isCGB)

	return mmu, nil
}

// RAMSnapshot returns the opaque cartridge RAM snapshot, or nil if no
// battery-backed MBC is loaded.
func (m *MMU) RAMSnapshot() []byte {
	if m.mbc == nil {
		return nil
	}
	return m.mbc.RAMSnapshot()
}

// LoadRAMSnapshot restores a previously captured RAM snapshot.
func (m *MMU) LoadRAMSnapshot(data []byte) error {
	if m.mbc == nil {
		return fmt.Errorf("memory: %w: no cartridge loaded", ErrCorruptSnapshot)
	}
	return m.mbc.LoadRAMSnapshot(data)
}

func initRegionMap(m *MMU) {
	for i := 0x00; i <= 0x7F; i++ {
		m.regionMap[i] = regionROM
	}
	for i := 0x80; i <= 0x9F; i++ {
		m.regionMap[i] = regionVRAM
	}
	for i := 0xA0; i <= 0xBF; i++ {
		m.regionMap[i] = regionExtRAM
	}
	for i := 0xC0; i <= 0xDF; i++ {
		m.regionMap[i] = regionWRAM
	}
	for i := 0xE0; i <= 0xFD; i++ {
		m.regionMap[i] = regionEcho
	}
	m.regionMap[0xFE] = regionOAM
	m.regionMap[0xFF] = regionIO
}

// RequestInterrupt sets the interrupt flag (IF register) of the chosen interrupt to 1.
func (m *MMU) RequestInterrupt(interrupt addr.Interrupt) {
	var bitPos uint8
	switch interrupt {
	case addr.VBlankInterrupt:
		bitPos = 0
	case addr.LCDSTATInterrupt:
		bitPos = 1
	case addr.TimerInterrupt:
		bitPos = 2
	case addr.SerialInterrupt:
		bitPos = 3
	case addr.JoypadInterrupt:
		bitPos = 4
	default:
		panic(fmt.Sprintf("Unknown interrupt: 0x%02X", uint8(interrupt)))
	}

	m.ifReg = bit.Set(bitPos, m.ifReg)
}

func (m *MMU) ReadBit(index uint8, address uint16) bool {
	return bit.IsSet(index, m.Read(address))
}

func (m *MMU) SetBit(index uint8, address uint16, set bool) {
	value := m.Read(address)
	if set {
		value = bit.Set(index, value)
	} else {
		value = bit.Reset(index, value)
	}
	m.Write(address, value)
}

// ReadVRAMBank reads a VRAM byte from a specific bank (0 or 1), regardless
// of the currently-selected VBK bank. The CGB PPU needs this to read a
// tile's attribute byte from bank 1 and its pixel data from whichever bank
// the attribute byte selects, independent of the CPU-facing VBK register.
func (m *MMU) ReadVRAMBank(bank uint8, address uint16) byte {
	return m.vram[bank&0x01][address-0x8000]
}

// BGColor555 returns one of the 4 colors (0-3) of background palette
// paletteIndex (0-7) as raw RGB555, for the CGB PPU to resolve BGPI/BGPD
// palette RAM into pixel colors.
func (m *MMU) BGColor555(paletteIndex, colorIndex uint8) uint16 {
	return m.bgPalette.Color555(paletteIndex*4 + colorIndex)
}

// ObjColor555 is BGColor555's counterpart for the OBPI/OBPD sprite palette
// RAM.
func (m *MMU) ObjColor555(paletteIndex, colorIndex uint8) uint16 {
	return m.objPalette.Color555(paletteIndex*4 + colorIndex)
}

// wramBankIndex returns the effective switchable bank (1-7), treating a
// written 0 as 1 per spec.md 4.4.
func (m *MMU) wramBankIndex() uint8 {
	if m.wramBank == 0 {
		return 1
	}
	return m.wramBank
}

// Read performs a raw, non-ticking bus read. Devices peeking at registers
// during their own Tick (GPU/APU) use this so they don't recursively
// advance the clock; the CPU-facing Read8 wraps this with self-ticking.
func (m *MMU) Read(address uint16) byte {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc == nil {
			slog.Warn("reading from ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.ReadROM(address)
	case regionExtRAM:
		if m.mbc == nil {
			slog.Warn("reading from external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address))
			return 0xFF
		}
		return m.mbc.ReadRAM(address)
	case regionVRAM:
		return m.vram[m.vramBank][address-0x8000]
	case regionWRAM:
		if address <= 0xCFFF {
			return m.wram[0][address-0xC000]
		}
		return m.wram[m.wramBankIndex()][address-0xD000]
	case regionEcho:
		return m.Read(address - 0x2000)
	case regionOAM:
		if address <= 0xFE9F {
			return m.oam[address-0xFE00]
		}
		return 0xFF
	case regionIO:
		return m.readIO(address)
	default:
		panic(fmt.Sprintf("Attempted read at unmapped address: 0x%X", address))
	}
}

func (m *MMU) readIO(address uint16) byte {
	switch {
	case address == addr.P1:
		return m.io[address-0xFF00]
	case address == addr.SB || address == addr.SC:
		return m.serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return m.timer.Read(address)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return m.APU.ReadRegister(address)
	case address == addr.IF:
		return m.IF()
	case address == addr.IE:
		return m.ieReg
	case address == addr.KEY1:
		v := m.io[address-0xFF00] & 0x01
		if m.doubleSpeed {
			v |= 0x80
		}
		return v | 0x7E
	case address == addr.VBK:
		return m.vramBank | 0xFE
	case address == addr.SVBK:
		return m.wramBank | 0xF8
	case address == addr.BGPI:
		return m.bgPalette.readIndex()
	case address == addr.BGPD:
		return m.bgPalette.readData()
	case address == addr.OBPI:
		return m.objPalette.readIndex()
	case address == addr.OBPD:
		return m.objPalette.readData()
	case address >= 0xFF80 && address <= 0xFFFE:
		return m.hram[address-0xFF80]
	default:
		return m.io[address-0xFF00]
	}
}

func (m *MMU) Write(address uint16, value byte) {
	switch m.regionMap[address>>8] {
	case regionROM:
		if m.mbc == nil {
			slog.Warn("writing to ROM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.WriteROM(address, value)
	case regionVRAM:
		m.vram[m.vramBank][address-0x8000] = value
	case regionExtRAM:
		if m.mbc == nil {
			slog.Warn("writing to external RAM with no cartridge", "addr", fmt.Sprintf("0x%04X", address), "value", fmt.Sprintf("0x%02X", value))
			return
		}
		m.mbc.WriteRAM(address, value)
	case regionWRAM:
		if address <= 0xCFFF {
			m.wram[0][address-0xC000] = value
		} else {
			m.wram[m.wramBankIndex()][address-0xD000] = value
		}
	case regionEcho:
		m.Write(address-0x2000, value)
	case regionOAM:
		if address <= 0xFE9F {
			m.oam[address-0xFE00] = value
		}
	case regionIO:
		m.writeIO(address, value)
	default:
		panic(fmt.Sprintf("Attempted write at unmapped address: 0x%X", address))
	}
}

func (m *MMU) writeIO(address uint16, value byte) {
	switch {
	case address == addr.P1:
		m.writeJoypad(value)
	case address == addr.SB || address == addr.SC:
		m.serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		m.timer.Write(address, value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		m.APU.WriteRegister(address, value)
	case address == addr.IF:
		m.ifReg = value & 0x1F
	case address == addr.IE:
		m.ieReg = value
	case address == addr.DMA:
		m.dma.Start(value)
		m.io[address-0xFF00] = value
	case address == addr.KEY1:
		m.io[address-0xFF00] = value & 0x01
	case address == addr.VBK:
		if m.mode == ModeCGB {
			m.vramBank = value & 0x01
		}
	case address == addr.SVBK:
		if m.mode == ModeCGB {
			m.wramBank = value & 0x07
		}
	case address == addr.BGPI:
		m.bgPalette.writeIndex(value)
	case address == addr.BGPD:
		m.bgPalette.writeData(value)
	case address == addr.OBPI:
		m.objPalette.writeIndex(value)
	case address == addr.OBPD:
		m.objPalette.writeData(value)
	case address >= 0xFF80 && address <= 0xFFFE:
		m.hram[address-0xFF80] = value
	default:
		m.io[address-0xFF00] = value
	}
}

// SetDoubleSpeedState mirrors the CPU's double-speed flag so the APU tick
// can be halved relative to the CGB's doubled CPU clock (spec.md 4.9); the
// timer and serial keep ticking at the CPU rate. The CPU is the source of truth for the flag itself; the
// owning Machine calls this whenever cpu.CPU.DoubleSpeed() changes after a
// STOP-triggered KEY1 switch.
func (m *MMU) SetDoubleSpeedState(v bool) { m.doubleSpeed = v }

func (m *MMU) DoubleSpeed() bool { return m.doubleSpeed }

// updateJoypadRegister sets the joypad register (P1) according to selection bits
// and hardware (buttons) status.
//
// In real hw, this register is actually just a selector (bits 4-5) that control
// to which set of buttons the low bits (0-3) are mapped to.
//
// The mapping:
//   - if bit 4 is clear, bits 0-3 are mapped to the 4 d-pad directions
//   - if bit 5 is clear, bits 0-3 are mapped to A, B, Start, Select
//   - if both are clear, hw does an AND of both button sets
//   - if both are set, return 0x0F (high impedence state)
//
// Note that 1 -> button released, 0 -> button pressed.
// Bits 6-7 are unused, they always read as 1 on real hardware.
func (m *MMU) updateJoypadRegister() {
	p1 := m.io[addr.P1-0xFF00]
	result := uint8(0b11000000) // Bits 6-7 are always read as 1
	result |= p1 & 0b00110000   // Keep selection bits 4-5

	selectDpad := !bit.IsSet(4, p1)
	selectButtons := !bit.IsSet(5, p1)

	switch {
	case selectButtons && !selectDpad:
		result |= m.joypadButtons & 0x0F
	case selectDpad && !selectButtons:
		result |= m.joypadDpad & 0x0F
	case selectButtons && selectDpad:
		result |= m.joypadButtons & m.joypadDpad & 0x0F
	default:
		result |= 0x0F
	}

	m.io[addr.P1-0xFF00] = result
}

func (m *MMU) writeJoypad(value uint8) {
	m.io[addr.P1-0xFF00] = value & 0b00110000
	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyPress(key JoypadKey) {
	oldButtons := m.joypadButtons
	oldDpad := m.joypadDpad

	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Reset(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Reset(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Reset(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Reset(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Reset(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Reset(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Reset(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Reset(3, m.joypadButtons)
	}

	buttonTransitions := oldButtons & ^m.joypadButtons
	dpadTransitions := oldDpad & ^m.joypadDpad
	if buttonTransitions|dpadTransitions != 0 {
		m.RequestInterrupt(addr.JoypadInterrupt)
	}

	m.updateJoypadRegister()
}

func (m *MMU) HandleKeyRelease(key JoypadKey) {
	switch key {
	case JoypadRight:
		m.joypadDpad = bit.Set(0, m.joypadDpad)
	case JoypadLeft:
		m.joypadDpad = bit.Set(1, m.joypadDpad)
	case JoypadUp:
		m.joypadDpad = bit.Set(2, m.joypadDpad)
	case JoypadDown:
		m.joypadDpad = bit.Set(3, m.joypadDpad)
	case JoypadA:
		m.joypadButtons = bit.Set(0, m.joypadButtons)
	case JoypadB:
		m.joypadButtons = bit.Set(1, m.joypadButtons)
	case JoypadSelect:
		m.joypadButtons = bit.Set(2, m.joypadButtons)
	case JoypadStart:
		m.joypadButtons = bit.Set(3, m.joypadButtons)
	}

	m.updateJoypadRegister()
}
