package cpu

// execCB executes a single CB-prefixed opcode. The entire 256-entry table is
// systematic: bits 7-6 select the operation group, bits 5-3 select the bit
// index (BIT/RES/SET) or rotate/shift variant, and bits 2-0 select the r8
// operand via readR8/writeR8 (mapping.go). This covers all 256 opcodes
// without a hand-written function per opcode.
func (c *CPU) execCB() {
	opcode := c.fetch8()
	regIdx := opcode & 0x07
	group := opcode >> 6
	bitIdx := (opcode >> 3) & 0x07

	v := c.readR8(regIdx)

	switch group {
	case 0: // rotate/shift/swap, selected by bitIdx 0-7
		switch bitIdx {
		case 0:
			c.rlc(&v)
		case 1:
			c.rrc(&v)
		case 2:
			c.rl(&v)
		case 3:
			c.rr(&v)
		case 4:
			c.sla(&v)
		case 5:
			c.sra(&v)
		case 6:
			c.swap(&v)
		case 7:
			c.srl(&v)
		}
		c.writeR8(regIdx, v)

	case 1: // BIT b,r8 (no write-back)
		c.bitTest(bitIdx, v)

	case 2: // RES b,r8
		c.writeR8(regIdx, resBit(bitIdx, v))

	case 3: // SET b,r8
		c.writeR8(regIdx, setBit(bitIdx, v))
	}

	// No manual ticks needed: the CB-prefix fetch, this opcode's own fetch,
	// and -- when the operand is (HL) -- its read8/write8 all self-tick
	// through the bus already. Register operands touch no extra bus access.
}
