package memory

// OAMDMA models the OAM DMA transfer engine (spec.md 4.5): writing the DMA
// register starts a transfer of 160 bytes from source*0x100 into OAM,
// advancing one byte every 4 T, while the CPU may not fetch or execute.
type OAMDMA struct {
	active   bool
	source   uint16
	progress int
	accum    int
}

// Start begins a new transfer; the written byte is the high byte of the
// source address (spec.md 4.5). Restarting mid-transfer simply resets the
// source and progress, matching documented hardware behavior closely enough
// for test-ROM compatibility.
func (d *OAMDMA) Start(value uint8) {
	d.source = uint16(value) << 8
	d.progress = 0
	d.accum = 0
	d.active = true
}

// Tick advances the transfer by the given number of T-cycles, copying one
// byte into OAM every 4 T via a raw (non-self-ticking) bus read.
func (d *OAMDMA) Tick(cycles int, m *MMU) {
	if !d.active {
		return
	}

	d.accum += cycles
	for d.accum >= 4 && d.progress < 0xA0 {
		m.oam[d.progress] = m.Read(d.source + uint16(d.progress))
		d.progress++
		d.accum -= 4
	}

	if d.progress >= 0xA0 {
		d.active = false
	}
}
