package memory

import "github.com/deanthecoder/gbcore/jeebie/util"

const titleLength = 11

const (
	entryPointAddress       = 0x100
	logoAddress             = 0x104
	titleAddress            = 0x134
	manufacturerCodeAddress = 0x13F
	cgbFlagAddress          = 0x143
	newLicenseCodeAddress   = 0x144
	sgbFlagAddress          = 0x146
	cartridgeTypeAddress    = 0x147
	romSizeAddress          = 0x148
	ramSizeAddress          = 0x149
	destinationCodeAddress  = 0x14A
	oldLicenseCodeAddress   = 0x14B
	versionNumberAddress    = 0x14C
	headerChecksumAddress   = 0x14D
	globalChecksumAddress   = 0x14E
)

// MBCType identifies which bank-controller family a cartridge header
// requests (spec.md 6.5 "Cartridge header"); unknown codes fall back to
// ROM-only so execution can still begin.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

// ramBankTable implements spec.md's RAM size code table: 0x149 -> {0, 0, 1,
// 4, 16, 8} banks of 8 KiB.
var ramBankTable = [...]uint8{0, 0, 1, 4, 16, 8}

type Cartridge struct {
	data           []byte
	title          string
	headerChecksum uint16
	globalChecksum uint16
	version        uint8
	cartType       uint8
	romSize        uint8
	ramSize        uint8

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	ramBankCount uint8
	romBankCount uint16
	isCGB        bool
	cgbOnly      bool
}

// NewCartridge creates an empty cartridge, useful only for debugging purposes.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x10000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData initializes a new Cartridge from a slice of bytes,
// decoding the standard header at 0100-014F (spec.md 6.5).
func NewCartridgeWithData(bytes []byte) *Cartridge {
	titleBytes := bytes[titleAddress : titleAddress+titleLength]

	cart := &Cartridge{
		data:           make([]byte, len(bytes)),
		title:          cleanGameboyTitle(titleBytes),
		headerChecksum: util.CombineBytes(bytes[headerChecksumAddress+1], bytes[headerChecksumAddress]),
		globalChecksum: util.CombineBytes(bytes[globalChecksumAddress+1], bytes[globalChecksumAddress]),
		version:        bytes[versionNumberAddress],
		cartType:       bytes[cartridgeTypeAddress],
		romSize:        bytes[romSizeAddress],
		ramSize:        bytes[ramSizeAddress],
	}

	copy(cart.data, bytes)

	cgbFlag := bytes[cgbFlagAddress]
	cart.isCGB = cgbFlag == 0x80 || cgbFlag == 0xC0
	cart.cgbOnly = cgbFlag == 0xC0

	cart.romBankCount = 2 << cart.romSize
	if int(cart.ramSize) < len(ramBankTable) {
		cart.ramBankCount = ramBankTable[cart.ramSize]
	}

	cart.decodeMBCType()

	return cart
}

// decodeMBCType maps the 0x147 cartridge-type byte to an MBC family plus
// its battery/RTC/rumble feature flags. Codes outside this table fall back
// to ROM-only, per spec.md 6.5.
func (c *Cartridge) decodeMBCType() {
	switch c.cartType {
	case 0x00, 0x08, 0x09:
		c.mbcType = NoMBCType
	case 0x01, 0x02, 0x03:
		c.mbcType = MBC1Type
	case 0x05, 0x06:
		c.mbcType = MBC2Type
	case 0x0F, 0x10, 0x11, 0x12, 0x13:
		c.mbcType = MBC3Type
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E:
		c.mbcType = MBC5Type
	default:
		c.mbcType = NoMBCType
	}

	switch c.cartType {
	case 0x03, 0x06, 0x09, 0x0F, 0x10, 0x13, 0x1B, 0x1E:
		c.hasBattery = true
	}

	switch c.cartType {
	case 0x0F, 0x10:
		c.hasRTC = true
	}

	switch c.cartType {
	case 0x1C, 0x1D, 0x1E:
		c.hasRumble = true
	}
}

// Title returns the cleaned game title decoded from the header.
func (c *Cartridge) Title() string { return c.title }

// IsCGB reports whether the header's CGB flag marks color support (0x80 or
// 0xC0 at cgbFlagAddress).
func (c *Cartridge) IsCGB() bool { return c.isCGB }

// CGBOnly reports whether the cartridge requires Game Boy Color hardware
// (CGB flag 0xC0).
func (c *Cartridge) CGBOnly() bool { return c.cgbOnly }

// ReadByte reads a byte at the specified address. Does not check bounds, so the caller must make sure the
// address is valid for the cartridge.
func (c *Cartridge) ReadByte(addr uint16) uint8 {
	return c.data[addr]
}
