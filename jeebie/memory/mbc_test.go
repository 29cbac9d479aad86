package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoMBC(t *testing.T) {
	rom := make([]uint8, 0x8000)
	for i := range rom {
		rom[i] = uint8(i & 0xFF)
	}

	mbc := NewNoMBC(rom, 1)

	assert.Equal(t, uint8(0x00), mbc.ReadROM(0x0000))
	assert.Equal(t, uint8(0xFF), mbc.ReadROM(0x7FFF))

	mbc.WriteRAM(0xA000, 0x42)
	assert.Equal(t, uint8(0x42), mbc.ReadRAM(0xA000))
}

func TestMBC1(t *testing.T) {
	t.Run("ROM Bank 0 (Fixed)", func(t *testing.T) {
		rom := make([]uint8, 0x8000)
		for i := range rom {
			rom[i] = uint8(i & 0xFF)
		}

		mbc := NewMBC1(rom, false, 0)

		for addr := uint16(0x0000); addr < 0x4000; addr++ {
			assert.Equal(t, uint8(addr&0xFF), mbc.ReadROM(addr))
		}
	})

	t.Run("ROM Bank Switching", func(t *testing.T) {
		rom := make([]uint8, 0x10000)
		for i := range rom {
			rom[i] = uint8(i / 0x4000)
		}

		mbc := NewMBC1(rom, false, 0)

		tests := []struct {
			name     string
			bankNum  uint8
			wantByte uint8
		}{
			{"Default Bank (1)", 1, 1},
			{"Switch to Bank 2", 2, 2},
			{"Switch to Bank 3", 3, 3},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if tt.bankNum > 1 {
					mbc.WriteROM(0x2000, tt.bankNum)
				}
				assert.Equal(t, tt.wantByte, mbc.ReadROM(0x4000))
			})
		}
	})

	t.Run("RAM Banking", func(t *testing.T) {
		mbc := NewMBC1(make([]uint8, 0x8000), false, 4)

		t.Run("RAM Disabled by Default", func(t *testing.T) {
			assert.Equal(t, uint8(0xFF), mbc.ReadRAM(0xA000))
		})

		t.Run("RAM Enable/Disable", func(t *testing.T) {
			mbc.WriteROM(0x0000, 0x0A)
			mbc.WriteRAM(0xA000, 0x42)
			assert.Equal(t, uint8(0x42), mbc.ReadRAM(0xA000))

			mbc.WriteROM(0x0000, 0x00)
			assert.Equal(t, uint8(0xFF), mbc.ReadRAM(0xA000))
		})

		t.Run("Multiple RAM Banks", func(t *testing.T) {
			mbc.WriteROM(0x0000, 0x0A)
			mbc.WriteROM(0x6000, 1) // RAM banking mode

			tests := []struct {
				bankNum uint8
				value   uint8
			}{
				{0, 0x42},
				{1, 0x43},
				{2, 0x44},
				{3, 0x45},
			}

			for _, tt := range tests {
				mbc.WriteROM(0x4000, tt.bankNum)
				mbc.WriteRAM(0xA000, tt.value)
			}

			for _, tt := range tests {
				mbc.WriteROM(0x4000, tt.bankNum)
				assert.Equal(t, tt.value, mbc.ReadRAM(0xA000))
			}
		})
	})

	t.Run("Banking Modes", func(t *testing.T) {
		rom := make([]uint8, 8*0x4000)
		for i := range rom {
			rom[i] = uint8(i / 0x4000)
		}

		mbc := NewMBC1(rom, false, 4)

		t.Run("ROM Banking Mode (0)", func(t *testing.T) {
			mbc.WriteROM(0x6000, 0) // ROM banking mode
			mbc.WriteROM(0x2000, 5)
			mbc.WriteROM(0x4000, 0)

			assert.Equal(t, uint8(5), mbc.ReadROM(0x4000))

			// bank2=1 supplies bit 5, giving bank 37; 37 % 8 = 5 wraps modulo the actual bank count.
			mbc.WriteROM(0x2000, 5)
			mbc.WriteROM(0x4000, 1)
			assert.Equal(t, uint8(5), mbc.ReadROM(0x4000))
		})

		t.Run("RAM Banking Mode (1) preserves ROM bank1", func(t *testing.T) {
			mbc.WriteROM(0x6000, 1) // RAM banking mode
			mbc.WriteROM(0x2000, 5)
			mbc.WriteROM(0x4000, 2)

			assert.Equal(t, uint8(5), mbc.bank1, "bank1 untouched by mode switch")
			assert.Equal(t, uint8(2), mbc.bank2, "bank2 now selects RAM bank in mode 1")

			// bank2 still supplies the high bits of the switchable region in
			// mode 1: (2<<5)|5 = 69, and 69 % 8 = 5 on this 8-bank ROM.
			assert.Equal(t, uint8(5), mbc.ReadROM(0x4000))
		})

		t.Run("mode switch back to 0 restores bank2 as ROM high bits", func(t *testing.T) {
			mbc.WriteROM(0x6000, 1)
			mbc.WriteROM(0x4000, 1) // bank2 = 1, currently interpreted as RAM bank
			mbc.WriteROM(0x6000, 0) // switch back: bank2 now reinterpreted as ROM high bits

			assert.Equal(t, uint8(1), mbc.bank2, "bank2 register itself is never cleared by a mode switch")
		})
	})

	t.Run("Invalid Bank Handling", func(t *testing.T) {
		mbc := NewMBC1(make([]uint8, 0x8000), false, 0)

		t.Run("Bank 0 Translation", func(t *testing.T) {
			mbc.WriteROM(0x2000, 0)
			assert.Equal(t, uint8(1), mbc.bank1, "ROM bank 0 is translated to 1")
		})
	})
}

func TestMBC2(t *testing.T) {
	rom := make([]uint8, 0x8000)
	mbc := NewMBC2(rom)

	t.Run("RAM disabled by default", func(t *testing.T) {
		assert.Equal(t, uint8(0xFF), mbc.ReadRAM(0xA000))
	})

	t.Run("built-in 512x4-bit RAM, upper nibble reads as 1", func(t *testing.T) {
		mbc.WriteROM(0x0000, 0x0A) // address bit 8 clear -> RAM enable
		mbc.WriteRAM(0xA000, 0xAB)
		assert.Equal(t, uint8(0xFB), mbc.ReadRAM(0xA000), "only the low nibble is stored, high nibble reads as 1s")
	})

	t.Run("ROM bank select routed through address bit 8", func(t *testing.T) {
		mbc.WriteROM(0x2100, 3) // bit 8 set -> ROM bank select
		assert.Equal(t, uint8(3), mbc.romBank)
	})

	t.Run("RAM mirrors across the A000-BFFF region via the 9-bit address mask", func(t *testing.T) {
		mbc.WriteRAM(0xA1FF, 0x05)
		assert.Equal(t, uint8(0xF5), mbc.ReadRAM(0xA3FF), "same physical cell, address wraps every 0x200 bytes")
	})
}

func TestMBC3(t *testing.T) {
	rom := make([]uint8, 4*0x4000)
	for i := range rom {
		rom[i] = uint8(i / 0x4000)
	}

	t.Run("7-bit ROM bank, 0 translated to 1", func(t *testing.T) {
		mbc := NewMBC3(rom, false, 4)
		mbc.WriteROM(0x2000, 0)
		assert.Equal(t, uint8(1), mbc.romBank)

		mbc.WriteROM(0x2000, 3)
		assert.Equal(t, uint8(3), mbc.ReadROM(0x4000))
	})

	t.Run("RTC register select and passthrough", func(t *testing.T) {
		mbc := NewMBC3(rom, true, 4)
		mbc.WriteROM(0x0000, 0x0A) // enable RAM/RTC
		mbc.WriteROM(0x4000, 0x08) // select RTC seconds register

		mbc.rtc.halted = true
		mbc.rtc.seconds = 42
		assert.Equal(t, uint8(42), mbc.ReadRAM(0xA000))

		mbc.WriteRAM(0xA000, 30)
		assert.Equal(t, uint8(30), mbc.rtc.seconds)
	})

	t.Run("latch sequence snapshots the live registers", func(t *testing.T) {
		mbc := NewMBC3(rom, true, 4)
		mbc.rtc.halted = true
		mbc.rtc.seconds = 10
		mbc.WriteROM(0x6000, 0x00)
		mbc.rtc.seconds = 20 // changes after the first write, before the second
		mbc.WriteROM(0x6000, 0x01)

		mbc.WriteROM(0x0000, 0x0A) // enable RAM/RTC
		mbc.WriteROM(0x4000, 0x08)
		assert.Equal(t, uint8(20), mbc.ReadRAM(0xA000), "latch captures state at the 0x01 write")
	})
}

func TestMBC5(t *testing.T) {
	rom := make([]uint8, 16*0x4000)
	for i := range rom {
		rom[i] = uint8(i / 0x4000)
	}

	mbc := NewMBC5(rom, false, 4)

	t.Run("9-bit ROM bank with no 0-to-1 quirk", func(t *testing.T) {
		mbc.WriteROM(0x2000, 0)
		assert.Equal(t, uint8(0), mbc.ReadROM(0x4000), "bank 0 is selectable, unlike MBC1/2/3")

		mbc.WriteROM(0x2000, 0xFF)
		mbc.WriteROM(0x3000, 0x01) // bit 8
		assert.Equal(t, uint16(0x1FF), mbc.romBank)
	})

	t.Run("4-bit RAM bank", func(t *testing.T) {
		mbc.WriteROM(0x0000, 0x0A)
		mbc.WriteROM(0x4000, 0x02)
		mbc.WriteRAM(0xA000, 0x77)

		mbc.WriteROM(0x4000, 0x00)
		assert.NotEqual(t, uint8(0x77), mbc.ReadRAM(0xA000))

		mbc.WriteROM(0x4000, 0x02)
		assert.Equal(t, uint8(0x77), mbc.ReadRAM(0xA000))
	})
}

func TestMBC3RAMSnapshot(t *testing.T) {
	mbc := NewMBC3(make([]uint8, 0x8000), true, 1)
	mbc.WriteROM(0x0000, 0x0A)
	mbc.WriteROM(0x4000, 0x00)
	mbc.WriteRAM(0xA000, 0x99)
	mbc.rtc.seconds = 33

	snap := mbc.RAMSnapshot()
	assert.Equal(t, rtcRecordSize, len(snap)-0x2000, "RTC record is appended after the RAM bytes")

	restored := NewMBC3(make([]uint8, 0x8000), true, 1)
	err := restored.LoadRAMSnapshot(snap)
	assert.NoError(t, err)
	restored.WriteROM(0x0000, 0x0A)
	restored.WriteROM(0x4000, 0x00)
	assert.Equal(t, uint8(0x99), restored.ReadRAM(0xA000))
	assert.Equal(t, uint8(33), restored.rtc.seconds)
}
