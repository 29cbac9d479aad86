package memory

import (
	"encoding/binary"
	"time"
)

// MBC is the interface every memory bank controller implements (spec.md
// 4.3): separate ROM/RAM read/write paths so the Bus can route control
// writes (bank select, RAM enable) without disturbing actual RAM storage,
// plus an opaque snapshot pair for battery-backed saves.
type MBC interface {
	ReadROM(address uint16) uint8
	WriteROM(address uint16, value uint8)
	ReadRAM(address uint16) uint8
	WriteRAM(address uint16, value uint8)
	RAMSnapshot() []byte
	LoadRAMSnapshot(data []byte) error
}

// NoMBC represents cartridges with no memory banking capabilities.
// These are typically smaller games (32KB or less) that fit entirely in the
// base memory region. The cartridge ROM is directly mapped to 0x0000-0x7FFF
// and cannot be banked/switched. RAM, when present, is a single fixed bank.
type NoMBC struct {
	rom []uint8
	ram []uint8
}

// NewNoMBC creates a new NoMBC controller.
func NewNoMBC(romData []uint8, ramBankCount uint8) *NoMBC {
	return &NoMBC{
		rom: romData,
		ram: make([]uint8, uint32(ramBankCount)*0x2000),
	}
}

func (m *NoMBC) ReadROM(address uint16) uint8 {
	if int(address) >= len(m.rom) {
		return 0xFF
	}
	return m.rom[address]
}

func (m *NoMBC) WriteROM(address uint16, value uint8) {}

func (m *NoMBC) ReadRAM(address uint16) uint8 {
	offset := address - 0xA000
	if int(offset) >= len(m.ram) {
		return 0xFF
	}
	return m.ram[offset]
}

func (m *NoMBC) WriteRAM(address uint16, value uint8) {
	offset := address - 0xA000
	if int(offset) < len(m.ram) {
		m.ram[offset] = value
	}
}

func (m *NoMBC) RAMSnapshot() []byte { return append([]byte(nil), m.ram...) }

func (m *NoMBC) LoadRAMSnapshot(data []byte) error {
	n := copy(m.ram, data)
	for i := n; i < len(m.ram); i++ {
		m.ram[i] = 0
	}
	return nil
}

// MBC1 is the first and most common MBC chip. Features include:
// - Supports up to 2MB ROM (125 16KB banks)
// - Up to 32KB RAM (4 8KB banks)
// - Bank 0 always mapped to 0x0000-0x3FFF
// - Switchable ROM bank at 0x4000-0x7FFF
// - Optional RAM banking at 0xA000-0xBFFF
// - Two banking modes:
//   - Mode 0 (ROM): Allows access to full ROM but only 8KB RAM
//   - Mode 1 (RAM): Restricts ROM banking but allows full RAM access
type MBC1 struct {
	rom          []uint8
	ram          []uint8
	bank1        uint8 // 5-bit low ROM bank register, 0 reads back as 1
	bank2        uint8 // 2-bit register: high ROM bits (mode 0) or RAM bank (mode 1)
	ramEnabled   bool
	bankingMode  uint8
	romBankCount uint16
}

// NewMBC1 creates a new MBC1 controller.
func NewMBC1(romData []uint8, hasBattery bool, ramBankCount uint8) *MBC1 {
	ramSize := uint32(ramBankCount) * 0x2000
	return &MBC1{
		rom:          romData,
		ram:          make([]uint8, ramSize),
		bank1:        1,
		romBankCount: uint16(len(romData) / 0x4000),
	}
}

func (m *MBC1) bankedROMOffset(bank uint8) uint32 {
	count := m.romBankCount
	if count == 0 {
		count = 1
	}
	return uint32(bank%uint8(count)) * 0x4000
}

func (m *MBC1) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		bank := uint8(0)
		if m.bankingMode == 1 {
			bank = m.bank2 << 5
		}
		return m.rom[m.bankedROMOffset(bank)+uint32(address)]
	}
	return m.rom[m.bankedROMOffset((m.bank2<<5)|m.bank1)+uint32(address-0x4000)]
}

func (m *MBC1) WriteROM(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case address <= 0x3FFF:
		bank := value & 0x1F
		if bank == 0 {
			bank = 1
		}
		m.bank1 = bank
	case address <= 0x5FFF:
		m.bank2 = value & 0x03
	case address <= 0x7FFF:
		m.bankingMode = value & 0x01
	}
}

func (m *MBC1) ramOffset(address uint16) (uint32, bool) {
	if len(m.ram) == 0 {
		return 0, false
	}
	bank := uint8(0)
	if m.bankingMode == 1 {
		bank = m.bank2
	}
	offset := uint32(bank)*0x2000 + uint32(address-0xA000)
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	return offset, true
}

func (m *MBC1) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	offset, ok := m.ramOffset(address)
	if !ok {
		return 0xFF
	}
	return m.ram[offset]
}

func (m *MBC1) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if offset, ok := m.ramOffset(address); ok {
		m.ram[offset] = value
	}
}

func (m *MBC1) RAMSnapshot() []byte { return append([]byte(nil), m.ram...) }

func (m *MBC1) LoadRAMSnapshot(data []byte) error {
	n := copy(m.ram, data)
	for i := n; i < len(m.ram); i++ {
		m.ram[i] = 0
	}
	return nil
}

// MBC2 is a simpler MBC chip with built-in RAM. Features include:
// - Supports up to 256KB ROM (16 16KB banks)
// - Built-in 512x4 bits RAM (not external, no bank count configuration)
// - RAM nibbles only use the lower 4 bits; upper 4 bits read back as 1
// - The least significant bit of the upper address byte (bit 8) selects
//   between RAM-enable and ROM-bank-number when writing 0x0000-0x3FFF
type MBC2 struct {
	rom        []uint8
	ram        [512]uint8
	romBank    uint8
	ramEnabled bool
}

// NewMBC2 creates a new MBC2 controller.
func NewMBC2(romData []uint8) *MBC2 {
	return &MBC2{rom: romData, romBank: 1}
}

func (m *MBC2) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	offset := uint32(m.romBank) * 0x4000
	if offset >= uint32(len(m.rom)) {
		offset %= uint32(len(m.rom))
	}
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC2) WriteROM(address uint16, value uint8) {
	if address > 0x3FFF {
		return
	}
	if address&0x0100 != 0 {
		bank := value & 0x0F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	} else {
		m.ramEnabled = (value & 0x0F) == 0x0A
	}
}

func (m *MBC2) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	return m.ram[address&0x1FF] | 0xF0
}

func (m *MBC2) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	m.ram[address&0x1FF] = value & 0x0F
}

func (m *MBC2) RAMSnapshot() []byte { return append([]byte(nil), m.ram[:]...) }

func (m *MBC2) LoadRAMSnapshot(data []byte) error {
	n := copy(m.ram[:], data)
	for i := n; i < len(m.ram); i++ {
		m.ram[i] = 0
	}
	return nil
}

// rtcRecordSize is the fixed layout from spec.md 4.3.1: five raw fields,
// five latched fields, the latched flag, and an 8-byte little-endian Unix
// timestamp for last_updated.
const rtcRecordSize = 19

// rtc implements the MBC3 real-time clock: seconds/minutes/hours/days plus
// a halted flag and day-carry bit, with a latched snapshot used for reads
// while latched is true.
type rtc struct {
	seconds, minutes, hours uint8
	days                    uint16
	halted                  bool
	dayCarry                bool

	latchedSeconds, latchedMinutes, latchedHours uint8
	latchedDays                                  uint16
	latchedHalted, latchedDayCarry               bool
	latched                                      bool

	lastUpdated int64 // Unix seconds
	selectLatch uint8 // tracks the 0x00-then-0x01 latch sequence

	now func() time.Time // overridable for tests
}

func newRTC() *rtc {
	return &rtc{now: time.Now, lastUpdated: time.Now().Unix()}
}

// sync folds elapsed real time into the running fields, per spec.md 4.3.1.
func (r *rtc) sync() {
	now := r.now().Unix()
	delta := now - r.lastUpdated
	if r.halted {
		r.lastUpdated = now
		return
	}
	if delta <= 0 {
		return
	}
	r.lastUpdated = now

	total := int64(r.seconds) + int64(r.minutes)*60 + int64(r.hours)*3600 + int64(r.days)*86400 + delta
	r.seconds = uint8(total % 60)
	total /= 60
	r.minutes = uint8(total % 60)
	total /= 60
	r.hours = uint8(total % 24)
	total /= 24
	if total > 511 {
		r.dayCarry = true
		total %= 512
	}
	r.days = uint16(total)
}

func (r *rtc) latch() {
	r.latchedSeconds, r.latchedMinutes, r.latchedHours = r.seconds, r.minutes, r.hours
	r.latchedDays, r.latchedHalted, r.latchedDayCarry = r.days, r.halted, r.dayCarry
	r.latched = true
}

func (r *rtc) handleLatchWrite(value uint8) {
	if value == 0x00 {
		r.selectLatch = 0x00
	} else if value == 0x01 && r.selectLatch == 0x00 {
		r.sync()
		r.latch()
	}
}

// readRegister returns the RTC register selected by 0x08-0x0C, preferring
// the latched snapshot once one has been taken.
func (r *rtc) readRegister(idx uint8) uint8 {
	r.sync()
	if r.latched {
		switch idx {
		case 0x08:
			return r.latchedSeconds
		case 0x09:
			return r.latchedMinutes
		case 0x0A:
			return r.latchedHours
		case 0x0B:
			return uint8(r.latchedDays)
		case 0x0C:
			return dayHighFlags(r.latchedDays, r.latchedHalted, r.latchedDayCarry)
		}
	}
	switch idx {
	case 0x08:
		return r.seconds
	case 0x09:
		return r.minutes
	case 0x0A:
		return r.hours
	case 0x0B:
		return uint8(r.days)
	case 0x0C:
		return dayHighFlags(r.days, r.halted, r.dayCarry)
	}
	return 0xFF
}

func dayHighFlags(days uint16, halted, dayCarry bool) uint8 {
	v := uint8(days>>8) & 0x01
	if halted {
		v |= 0x40
	}
	if dayCarry {
		v |= 0x80
	}
	return v
}

func (r *rtc) writeRegister(idx uint8, value uint8) {
	r.sync()
	switch idx {
	case 0x08:
		r.seconds = value % 60
	case 0x09:
		r.minutes = value % 60
	case 0x0A:
		r.hours = value % 24
	case 0x0B:
		r.days = (r.days &^ 0xFF) | uint16(value)
	case 0x0C:
		wasHalted := r.halted
		r.days = (r.days &^ 0x100) | (uint16(value&0x01) << 8)
		r.halted = value&0x40 != 0
		if value&0x80 == 0 {
			r.dayCarry = false
		}
		if wasHalted && !r.halted {
			r.lastUpdated = r.now().Unix()
		}
	}
}

func (r *rtc) snapshot() []byte {
	buf := make([]byte, rtcRecordSize)
	buf[0], buf[1], buf[2] = r.seconds, r.minutes, r.hours
	binary.LittleEndian.PutUint16(buf[3:5], r.days)
	buf[5], buf[6], buf[7] = r.latchedSeconds, r.latchedMinutes, r.latchedHours
	binary.LittleEndian.PutUint16(buf[8:10], r.latchedDays)
	if r.latched {
		buf[10] = 1
	}
	binary.LittleEndian.PutUint64(buf[11:19], uint64(r.lastUpdated))
	return buf
}

func (r *rtc) restore(data []byte) {
	if len(data) < 5 {
		return
	}
	r.seconds, r.minutes, r.hours = data[0], data[1], data[2]
	r.days = binary.LittleEndian.Uint16(data[3:5])
	if len(data) < rtcRecordSize {
		return
	}
	r.latchedSeconds, r.latchedMinutes, r.latchedHours = data[5], data[6], data[7]
	r.latchedDays = binary.LittleEndian.Uint16(data[8:10])
	r.latched = data[10] != 0
	r.lastUpdated = int64(binary.LittleEndian.Uint64(data[11:19]))
}

// MBC3 is an advanced MBC chip with RTC support. Features include:
// - Supports up to 2MB ROM (128 16KB banks)
// - Up to 32KB RAM (4 8KB banks)
// - Real-Time Clock (RTC) functionality, selected via bank index 0x08-0x0C
// - Used in games that needed to track real time (e.g. Pokémon Gold/Silver)
type MBC3 struct {
	rom          []uint8
	ram          []uint8
	romBank      uint8
	ramBank      uint8
	ramEnabled   bool
	hasRTC       bool
	romBankCount uint16
	rtc          *rtc
}

// NewMBC3 creates a new MBC3 controller.
func NewMBC3(romData []uint8, hasRTC bool, ramBankCount uint8) *MBC3 {
	m := &MBC3{
		rom:          romData,
		ram:          make([]uint8, uint32(ramBankCount)*0x2000),
		romBank:      1,
		hasRTC:       hasRTC,
		romBankCount: uint16(len(romData) / 0x4000),
	}
	if hasRTC {
		m.rtc = newRTC()
	}
	return m
}

func (m *MBC3) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	count := m.romBankCount
	if count == 0 {
		count = 1
	}
	offset := uint32(m.romBank%uint8(count)) * 0x4000
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC3) WriteROM(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case address <= 0x3FFF:
		bank := value & 0x7F
		if bank == 0 {
			bank = 1
		}
		m.romBank = bank
	case address <= 0x5FFF:
		m.ramBank = value
	case address <= 0x7FFF:
		if m.hasRTC {
			m.rtc.handleLatchWrite(value)
		}
	}
}

func (m *MBC3) usesRTC() bool {
	return m.hasRTC && m.ramBank >= 0x08 && m.ramBank <= 0x0C
}

func (m *MBC3) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	if m.usesRTC() {
		return m.rtc.readRegister(m.ramBank)
	}
	if len(m.ram) == 0 {
		return 0xFF
	}
	offset := uint32(m.ramBank&0x03)*0x2000 + uint32(address-0xA000)
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	return m.ram[offset]
}

func (m *MBC3) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if m.usesRTC() {
		m.rtc.writeRegister(m.ramBank, value)
		return
	}
	if len(m.ram) == 0 {
		return
	}
	offset := uint32(m.ramBank&0x03)*0x2000 + uint32(address-0xA000)
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	m.ram[offset] = value
}

// RAMSnapshot returns the RAM banks followed by the 19-byte RTC record
// (spec.md 4.3: "RAM snapshot"), when this cartridge has an RTC.
func (m *MBC3) RAMSnapshot() []byte {
	out := append([]byte(nil), m.ram...)
	if m.hasRTC {
		out = append(out, m.rtc.snapshot()...)
	}
	return out
}

// LoadRAMSnapshot accepts any prefix of the RAMSnapshot layout.
func (m *MBC3) LoadRAMSnapshot(data []byte) error {
	n := copy(m.ram, data)
	for i := n; i < len(m.ram); i++ {
		m.ram[i] = 0
	}
	if m.hasRTC && len(data) > len(m.ram) {
		m.rtc.restore(data[len(m.ram):])
	}
	return nil
}

// MBC5 is the most advanced MBC chip. Features include:
// - Supports up to 8MB ROM (512 16KB banks) via a 9-bit bank register
// - Up to 128KB RAM (16 8KB banks)
// - Simple ROM/RAM banking with no quirks (unlike MBC1): writing 0 to the
//   ROM bank register actually selects bank 0, not bank 1
// - Used in Game Boy Color games that needed more ROM/RAM
type MBC5 struct {
	rom          []uint8
	ram          []uint8
	romBank      uint16
	ramBank      uint8
	ramEnabled   bool
	romBankCount uint16
}

// NewMBC5 creates a new MBC5 controller.
func NewMBC5(romData []uint8, hasRumble bool, ramBankCount uint8) *MBC5 {
	return &MBC5{
		rom:          romData,
		ram:          make([]uint8, uint32(ramBankCount)*0x2000),
		romBank:      1,
		romBankCount: uint16(len(romData) / 0x4000),
	}
}

func (m *MBC5) ReadROM(address uint16) uint8 {
	if address <= 0x3FFF {
		return m.rom[address]
	}
	count := m.romBankCount
	if count == 0 {
		count = 1
	}
	offset := uint32(m.romBank%count) * 0x4000
	return m.rom[offset+uint32(address-0x4000)]
}

func (m *MBC5) WriteROM(address uint16, value uint8) {
	switch {
	case address <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case address <= 0x2FFF:
		m.romBank = (m.romBank & 0x100) | uint16(value)
	case address <= 0x3FFF:
		m.romBank = (m.romBank & 0x0FF) | (uint16(value&0x01) << 8)
	case address <= 0x5FFF:
		m.ramBank = value & 0x0F
	}
}

func (m *MBC5) ramOffset(address uint16) (uint32, bool) {
	if len(m.ram) == 0 {
		return 0, false
	}
	offset := uint32(m.ramBank)*0x2000 + uint32(address-0xA000)
	if offset >= uint32(len(m.ram)) {
		offset %= uint32(len(m.ram))
	}
	return offset, true
}

func (m *MBC5) ReadRAM(address uint16) uint8 {
	if !m.ramEnabled {
		return 0xFF
	}
	offset, ok := m.ramOffset(address)
	if !ok {
		return 0xFF
	}
	return m.ram[offset]
}

func (m *MBC5) WriteRAM(address uint16, value uint8) {
	if !m.ramEnabled {
		return
	}
	if offset, ok := m.ramOffset(address); ok {
		m.ram[offset] = value
	}
}

func (m *MBC5) RAMSnapshot() []byte { return append([]byte(nil), m.ram...) }

func (m *MBC5) LoadRAMSnapshot(data []byte) error {
	n := copy(m.ram, data)
	for i := n; i < len(m.ram); i++ {
		m.ram[i] = 0
	}
	return nil
}
