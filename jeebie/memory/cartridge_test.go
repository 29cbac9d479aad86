package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeHeaderROM(title string, cgbFlag, cartType, romSize, ramSize byte) []byte {
	rom := make([]byte, 0x8000)
	copy(rom[titleAddress:titleAddress+titleLength], title)
	rom[cgbFlagAddress] = cgbFlag
	rom[cartridgeTypeAddress] = cartType
	rom[romSizeAddress] = romSize
	rom[ramSizeAddress] = ramSize
	return rom
}

func TestNewCartridgeWithData_Title(t *testing.T) {
	rom := makeHeaderROM("TETRIS", 0x00, 0x00, 0x00, 0x00)
	cart := NewCartridgeWithData(rom)
	assert.Equal(t, "TETRIS", cart.Title())
}

func TestNewCartridgeWithData_CGBFlag(t *testing.T) {
	tests := []struct {
		name       string
		flag       byte
		wantCGB    bool
		wantCGBOnl bool
	}{
		{"DMG only", 0x00, false, false},
		{"CGB aware", 0x80, true, false},
		{"CGB only", 0xC0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCartridgeWithData(makeHeaderROM("GAME", tt.flag, 0x00, 0x00, 0x00))
			assert.Equal(t, tt.wantCGB, cart.IsCGB())
			assert.Equal(t, tt.wantCGBOnl, cart.CGBOnly())
		})
	}
}

func TestNewCartridgeWithData_BankCounts(t *testing.T) {
	tests := []struct {
		romSize      byte
		ramSize      byte
		wantROMBanks uint16
		wantRAMBanks uint8
	}{
		{0x00, 0x00, 2, 0},
		{0x01, 0x02, 4, 1},
		{0x02, 0x03, 8, 4},
		{0x05, 0x04, 64, 16},
		{0x00, 0x05, 2, 8},
	}

	for _, tt := range tests {
		cart := NewCartridgeWithData(makeHeaderROM("GAME", 0x00, 0x00, tt.romSize, tt.ramSize))
		assert.Equal(t, tt.wantROMBanks, cart.romBankCount)
		assert.Equal(t, tt.wantRAMBanks, cart.ramBankCount)
	}
}

func TestDecodeMBCType(t *testing.T) {
	tests := []struct {
		name          string
		cartType      byte
		wantMBC       MBCType
		wantBattery   bool
		wantRTC       bool
		wantRumble    bool
	}{
		{"ROM only", 0x00, NoMBCType, false, false, false},
		{"ROM+RAM+Battery", 0x09, NoMBCType, true, false, false},
		{"MBC1", 0x01, MBC1Type, false, false, false},
		{"MBC1+RAM+Battery", 0x03, MBC1Type, true, false, false},
		{"MBC2", 0x05, MBC2Type, false, false, false},
		{"MBC2+Battery", 0x06, MBC2Type, true, false, false},
		{"MBC3+TIMER+RAM+Battery", 0x10, MBC3Type, true, true, false},
		{"MBC3", 0x11, MBC3Type, false, false, false},
		{"MBC5", 0x19, MBC5Type, false, false, false},
		{"MBC5+RUMBLE+RAM+Battery", 0x1E, MBC5Type, true, false, true},
		{"unknown falls back to ROM only", 0xFE, NoMBCType, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cart := NewCartridgeWithData(makeHeaderROM("GAME", 0x00, tt.cartType, 0x00, 0x00))
			assert.Equal(t, tt.wantMBC, cart.mbcType)
			assert.Equal(t, tt.wantBattery, cart.hasBattery)
			assert.Equal(t, tt.wantRTC, cart.hasRTC)
			assert.Equal(t, tt.wantRumble, cart.hasRumble)
		})
	}
}

func TestNewWithCartridge_UnsupportedMBC(t *testing.T) {
	cart := NewCartridgeWithData(makeHeaderROM("GAME", 0x00, 0x00, 0x00, 0x00))
	cart.mbcType = MBCUnknownType

	mmu, err := NewWithCartridge(cart)
	assert.Nil(t, mmu)
	assert.ErrorIs(t, err, ErrUnsupportedCartridge)
}

func TestNewWithCartridge_SelectsMBC(t *testing.T) {
	cart := NewCartridgeWithData(makeHeaderROM("GAME", 0x00, 0x03, 0x00, 0x02)) // MBC1+RAM+Battery
	mmu, err := NewWithCartridge(cart)
	assert.NoError(t, err)
	_, ok := mmu.mbc.(*MBC1)
	assert.True(t, ok)
}
