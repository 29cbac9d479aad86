package video

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/deanthecoder/gbcore/jeebie/addr"
	"github.com/deanthecoder/gbcore/jeebie/memory"
)

// writeBGPaletteColor writes one RGB555 color into BGPI/BGPD for a given
// palette (0-7) and color index (0-3), mirroring how a CGB boot ROM or game
// would program background palette RAM.
func writeBGPaletteColor(mmu *memory.MMU, palette, colorIndex uint8, rgb555 uint16) {
	index := (palette*4 + colorIndex) * 2
	mmu.Write(addr.BGPI, index|0x80) // auto-increment
	mmu.Write(addr.BGPD, byte(rgb555))
	mmu.Write(addr.BGPD, byte(rgb555>>8))
}

func writeObjPaletteColor(mmu *memory.MMU, palette, colorIndex uint8, rgb555 uint16) {
	index := (palette*4 + colorIndex) * 2
	mmu.Write(addr.OBPI, index|0x80)
	mmu.Write(addr.OBPD, byte(rgb555))
	mmu.Write(addr.OBPD, byte(rgb555>>8))
}

func TestGPUCGBBackgroundUsesPaletteRAM(t *testing.T) {
	mmu := memory.New()
	mmu.SetMode(memory.ModeCGB)
	gpu := NewGpu(mmu)

	mmu.Write(addr.LCDC, 0x91) // LCD on, BG on, unsigned tiles, tile map 0

	// palette 2, color 3 -> pure red (0x001F little-endian RGB555)
	writeBGPaletteColor(mmu, 2, 3, 0x001F)

	tile := createColorTile(3)
	for i := 0; i < 16; i++ {
		mmu.Write(0x8000+uint16(i), tile[i])
	}
	mmu.Write(0x9800, 0x00) // tile 0 at map (0,0)

	// select VRAM bank 1 to write the tile attribute byte for that map entry
	mmu.Write(addr.VBK, 0x01)
	mmu.Write(0x9800, 0x02) // palette number 2, bank 0, no flips
	mmu.Write(addr.VBK, 0x00)

	mmu.Write(addr.SCX, 0)
	mmu.Write(addr.SCY, 0)

	gpu.line = 0
	gpu.mode = vramReadMode
	gpu.drawScanline()

	pixel := gpu.framebuffer.GetPixel(0, 0)
	assert.Equal(t, Color555ToRGBA(0x001F), pixel)
}

func TestGPUCGBBackgroundTileBankSelection(t *testing.T) {
	mmu := memory.New()
	mmu.SetMode(memory.ModeCGB)
	gpu := NewGpu(mmu)

	mmu.Write(addr.LCDC, 0x91)
	writeBGPaletteColor(mmu, 0, 1, 0x03E0) // green

	// bank 0 tile 0 stays blank (color 0); bank 1 tile 0 is solid color 1
	tile := createColorTile(1)
	mmu.Write(addr.VBK, 0x01)
	for i := 0; i < 16; i++ {
		mmu.Write(0x8000+uint16(i), tile[i])
	}
	mmu.Write(0x9800, 0x08) // attribute byte: bank bit (bit 3) set, palette 0
	mmu.Write(addr.VBK, 0x00)

	mmu.Write(0x9800, 0x00) // tile index 0 in the map (bank 0)
	mmu.Write(addr.SCX, 0)
	mmu.Write(addr.SCY, 0)

	gpu.line = 0
	gpu.mode = vramReadMode
	gpu.drawScanline()

	pixel := gpu.framebuffer.GetPixel(0, 0)
	assert.Equal(t, Color555ToRGBA(0x03E0), pixel, "tile data should come from VRAM bank 1 per the attribute byte")
}

func TestGPUCGBSpriteMasterPriority(t *testing.T) {
	mmu := memory.New()
	mmu.SetMode(memory.ModeCGB)
	gpu := NewGpu(mmu)

	// LCDC: LCD on, unsigned BG tiles, sprites on, BG/window master
	// priority OFF (bit 0 clear)
	mmu.Write(addr.LCDC, 0x92)

	writeBGPaletteColor(mmu, 0, 1, 0x0010) // arbitrary non-black BG color
	writeObjPaletteColor(mmu, 0, 1, 0x7C00) // blue-ish sprite color

	bgTile := createColorTile(1)
	for i := 0; i < 16; i++ {
		mmu.Write(0x8000+uint16(i), bgTile[i])
	}
	mmu.Write(0x9800, 0x00)

	// sprite at (0,0), tile 0, OAM priority bit set (behind BG) -- should
	// still win because master priority is off.
	mmu.Write(addr.OAMStart, 16)     // Y
	mmu.Write(addr.OAMStart+1, 8)    // X
	mmu.Write(addr.OAMStart+2, 0x00) // tile 0 (reuses bgTile's solid color-1 pattern)
	mmu.Write(addr.OAMStart+3, 0x80) // OAM priority bit set (would normally lose to BG)

	mmu.Write(addr.SCX, 0)
	mmu.Write(addr.SCY, 0)

	gpu.line = 0
	gpu.mode = vramReadMode
	gpu.drawScanline()

	pixel := gpu.framebuffer.GetPixel(0, 0)
	assert.Equal(t, Color555ToRGBA(0x7C00), pixel, "master priority off means sprites always win")
}

func TestColor555ToRGBA(t *testing.T) {
	assert.Equal(t, uint32(0x000000FF), Color555ToRGBA(0x0000))
	assert.Equal(t, uint32(0xFFFFFFFF), Color555ToRGBA(0x7FFF))
	assert.Equal(t, uint32(0xFF0000FF), Color555ToRGBA(0x001F)) // red channel only
}
