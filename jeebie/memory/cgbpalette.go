package memory

// cgbPaletteRAM models one of the CGB palette RAM blocks addressed through
// an index/data register pair (BGPI/BGPD or OBPI/OBPD, spec.md 4.4): 8
// palettes of 4 colors of 2 bytes each. The index register's bit 7 selects
// auto-increment; per documented hardware, a data write advances the index
// when auto-increment is set, but a data *read* never does.
type cgbPaletteRAM struct {
	data  [64]byte
	index uint8
	auto  bool
}

func (p *cgbPaletteRAM) readIndex() uint8 {
	v := p.index | 0x40
	if p.auto {
		v |= 0x80
	}
	return v
}

func (p *cgbPaletteRAM) writeIndex(value uint8) {
	p.index = value & 0x3F
	p.auto = value&0x80 != 0
}

func (p *cgbPaletteRAM) readData() uint8 {
	return p.data[p.index]
}

func (p *cgbPaletteRAM) writeData(value uint8) {
	p.data[p.index] = value
	if p.auto {
		p.index = (p.index + 1) & 0x3F
	}
}

// Color555 returns palette entry i (0-31, 4 colors * 8 palettes = 32 slots
// of one RGB555 color each) as raw little-endian RGB555, for the PPU to
// decode into its own color format.
func (p *cgbPaletteRAM) Color555(i uint8) uint16 {
	lo := p.data[i*2]
	hi := p.data[i*2+1]
	return uint16(lo) | uint16(hi)<<8
}
