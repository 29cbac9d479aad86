package cpu

// readR8/writeR8 implement the SM83's uniform 3-bit register encoding used
// throughout the base opcode table and the entire CB-prefixed table:
// 0=B 1=C 2=D 3=E 4=H 5=L 6=(HL) 7=A. Centralizing the decode here is what
// lets opcodes_cb.go express all 256 prefixed opcodes algorithmically instead
// of as 256 hand-written functions.
func (c *CPU) readR8(idx uint8) uint8 {
	switch idx {
	case 0:
		return c.B
	case 1:
		return c.C
	case 2:
		return c.D
	case 3:
		return c.E
	case 4:
		return c.H
	case 5:
		return c.L
	case 6:
		return c.read8(c.HL())
	default:
		return c.A
	}
}

func (c *CPU) writeR8(idx uint8, v uint8) {
	switch idx {
	case 0:
		c.B = v
	case 1:
		c.C = v
	case 2:
		c.D = v
	case 3:
		c.E = v
	case 4:
		c.H = v
	case 5:
		c.L = v
	case 6:
		c.write8(c.HL(), v)
	default:
		c.A = v
	}
}

// r16Table resolves one of the four "rp" 16-bit register pairs used by
// opcodes with bits 5-4 selecting BC/DE/HL/SP.
func (c *CPU) readR16(idx uint8) uint16 {
	switch idx {
	case 0:
		return c.BC()
	case 1:
		return c.DE()
	case 2:
		return c.HL()
	default:
		return c.SP
	}
}

func (c *CPU) writeR16(idx uint8, v uint16) {
	switch idx {
	case 0:
		c.SetBC(v)
	case 1:
		c.SetDE(v)
	case 2:
		c.SetHL(v)
	default:
		c.SP = v
	}
}

// aluTable applies the 8 ALU ops selected by bits 5-3 of opcodes in the
// 0x80-0xBF block and in the "ALU A,n8" immediate forms (0xC6..0xFE).
func (c *CPU) applyALU(op uint8, value uint8) {
	switch op {
	case 0:
		c.add8(value)
	case 1:
		c.adc8(value)
	case 2:
		c.sub8(value)
	case 3:
		c.sbc8(value)
	case 4:
		c.and8(value)
	case 5:
		c.xor8(value)
	case 6:
		c.or8(value)
	case 7:
		c.cp8(value)
	}
}
