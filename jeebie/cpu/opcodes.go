package cpu

// execOne fetches, decodes and executes a single instruction at PC,
// including the CB-prefix escape, the HALT bug, and the illegal-opcode
// freeze (spec.md 9 "Illegal opcodes": resolved to freeze the CPU in place).
//
// Every fetch8/read8/write8 call self-ticks 4 T through the Bus (spec.md
// 4.2). The only manual bus.Tick calls left in this file pay for M-cycles
// that do NOT correspond to a bus access: internal ALU/address-compute
// cycles on 16-bit ops, and the extra cycle a taken branch or a return
// spends loading PC. The "internal" cycle of a push is charged once inside
// push16 (instructions.go); pop16 charges none.
func (c *CPU) execOne() {
	pc := c.PC
	opcode := c.fetch8()
	c.currentOpcode = opcode

	if c.hooks.BeforeInstruction != nil {
		c.hooks.BeforeInstruction(pc, opcode)
	}

	if c.haltBugPending {
		c.haltBugPending = false
		c.PC--
	}

	if opcode == 0xCB {
		c.execCB()
		return
	}

	if isIllegalOpcode(opcode) {
		c.PC--
		return
	}

	// Systematic blocks decoded arithmetically rather than one function per
	// opcode: LD r,r' (0x40-0x7F, minus HALT at 0x76) and ALU A,r (0x80-0xBF)
	// share the uniform r8 encoding from mapping.go. Neither needs an extra
	// tick: the only bus accesses involved are the opcode fetch above and,
	// when an operand is (HL), the read8/write8 inside readR8/writeR8.
	switch {
	case opcode == 0x76:
		// The HALT bug: if IME is off but an interrupt is already pending,
		// real hardware fails to increment PC past HALT, so the following
		// byte is fetched and executed twice.
		if !c.ime && (c.bus.IF()&c.bus.IE()&0x1F) != 0 {
			c.haltBugPending = true
		} else {
			c.halted = true
		}
		return
	case opcode >= 0x40 && opcode <= 0x7F:
		dst := (opcode >> 3) & 0x07
		src := opcode & 0x07
		c.writeR8(dst, c.readR8(src))
		return
	case opcode >= 0x80 && opcode <= 0xBF:
		op := (opcode >> 3) & 0x07
		c.applyALU(op, c.readR8(opcode&0x07))
		return
	}

	c.execMisc(opcode)
}

// execMisc handles every opcode outside the two systematic blocks above:
// the 0x00-0x3F row of loads/incs/decs/rotates/jumps, and the 0xC0-0xFF row
// of stack/branch/io operations.
func (c *CPU) execMisc(opcode uint8) {
	switch opcode {
	case 0x00: // NOP

	case 0x10: // STOP
		c.fetch8() // the second STOP byte, conventionally 0x00
		if c.bus.Read8(0xFF4D)&0x01 != 0 {
			c.doubleSpeed = !c.doubleSpeed
			c.bus.Write8(0xFF4D, 0x00) // clear the pending-switch request bit
		} else {
			c.stopped = true
		}

	case 0xF3: // DI
		c.ime = false
		c.pendingIME = false

	case 0xFB: // EI
		c.pendingIME = true

	case 0x27:
		c.daa()
	case 0x2F:
		c.cpl()
	case 0x37:
		c.scf()
	case 0x3F:
		c.ccf()

	case 0x07:
		c.rlc(&c.A)
		c.SetFlagZ(false)
	case 0x0F:
		c.rrc(&c.A)
		c.SetFlagZ(false)
	case 0x17:
		c.rl(&c.A)
		c.SetFlagZ(false)
	case 0x1F:
		c.rr(&c.A)
		c.SetFlagZ(false)

	case 0x18: // JR e8 -- unconditional, always pays the extra PC-load cycle
		e := c.fetchSigned8()
		c.bus.Tick(4)
		c.PC = uint16(int32(c.PC) + int32(e))

	case 0xC3: // JP a16 -- unconditional, always pays the extra PC-load cycle
		target := c.fetch16()
		c.bus.Tick(4)
		c.PC = target

	case 0xE9: // JP HL
		c.PC = c.HL()

	case 0xCD: // CALL a16
		target := c.fetch16()
		c.push16(c.PC)
		c.PC = target

	case 0xC9: // RET
		c.PC = c.pop16()
		c.bus.Tick(4)

	case 0xD9: // RETI
		c.PC = c.pop16()
		c.ime = true
		c.pendingIME = false
		c.bus.Tick(4)

	case 0xE0: // LDH (a8),A
		a := c.fetch8()
		c.write8(0xFF00+uint16(a), c.A)
	case 0xF0: // LDH A,(a8)
		a := c.fetch8()
		c.A = c.read8(0xFF00 + uint16(a))
	case 0xE2: // LD (C),A
		c.write8(0xFF00+uint16(c.C), c.A)
	case 0xF2: // LD A,(C)
		c.A = c.read8(0xFF00 + uint16(c.C))

	case 0xEA: // LD (a16),A
		target := c.fetch16()
		c.write8(target, c.A)
	case 0xFA: // LD A,(a16)
		target := c.fetch16()
		c.A = c.read8(target)

	case 0x08: // LD (a16),SP
		target := c.fetch16()
		c.write8(target, uint8(c.SP))
		c.write8(target+1, uint8(c.SP>>8))

	case 0xF9: // LD SP,HL -- register-to-register 16-bit load, extra cycle
		c.SP = c.HL()
		c.bus.Tick(4)

	case 0xE8: // ADD SP,e8 -- two extra internal cycles beyond the fetches
		c.SP = c.addSPSigned()
		c.bus.Tick(4)
		c.bus.Tick(4)

	case 0xF8: // LD HL,SP+e8 -- one extra internal cycle
		c.SetHL(c.addSPSigned())
		c.bus.Tick(4)

	case 0xC6:
		c.add8(c.fetch8())
	case 0xCE:
		c.adc8(c.fetch8())
	case 0xD6:
		c.sub8(c.fetch8())
	case 0xDE:
		c.sbc8(c.fetch8())
	case 0xE6:
		c.and8(c.fetch8())
	case 0xEE:
		c.xor8(c.fetch8())
	case 0xF6:
		c.or8(c.fetch8())
	case 0xFE:
		c.cp8(c.fetch8())

	default:
		c.execRow(opcode)
	}
}

// execRow handles the remaining systematic rows: the 0x00-0x3F block's per
// 8-register INC/DEC/LD-immediate triplets, 16-bit INC/DEC/LD-immediate and
// indirect loads through BC/DE/HL+/HL-, and the conditional/stack/rst family
// in 0xC0-0xFF.
func (c *CPU) execRow(opcode uint8) {
	switch {
	case opcode&0xC7 == 0x04: // INC r8 (includes (HL), whose read+write self-tick)
		idx := (opcode >> 3) & 0x07
		v := c.readR8(idx)
		c.inc8(&v)
		c.writeR8(idx, v)
		return
	case opcode&0xC7 == 0x05: // DEC r8
		idx := (opcode >> 3) & 0x07
		v := c.readR8(idx)
		c.dec8(&v)
		c.writeR8(idx, v)
		return
	case opcode&0xC7 == 0x06: // LD r8,n8 (or LD (HL),n8)
		idx := (opcode >> 3) & 0x07
		c.writeR8(idx, c.fetch8())
		return
	}

	rp := (opcode >> 4) & 0x03
	switch {
	case opcode&0xCF == 0x01: // LD rp,n16
		c.writeR16(rp, c.fetch16())
		return
	case opcode&0xCF == 0x03: // INC rp -- 16-bit register ops cost one extra internal cycle
		c.writeR16(rp, c.readR16(rp)+1)
		c.bus.Tick(4)
		return
	case opcode&0xCF == 0x0B: // DEC rp
		c.writeR16(rp, c.readR16(rp)-1)
		c.bus.Tick(4)
		return
	case opcode&0xCF == 0x09: // ADD HL,rp -- extra cycle charged inside addHL
		c.addHL(c.readR16(rp))
		return
	}

	switch opcode {
	case 0x02:
		c.write8(c.BC(), c.A)
	case 0x12:
		c.write8(c.DE(), c.A)
	case 0x22:
		c.write8(c.HL(), c.A)
		c.SetHL(c.HL() + 1)
	case 0x32:
		c.write8(c.HL(), c.A)
		c.SetHL(c.HL() - 1)
	case 0x0A:
		c.A = c.read8(c.BC())
	case 0x1A:
		c.A = c.read8(c.DE())
	case 0x2A:
		c.A = c.read8(c.HL())
		c.SetHL(c.HL() + 1)
	case 0x3A:
		c.A = c.read8(c.HL())
		c.SetHL(c.HL() - 1)

	case 0x20, 0x28, 0x30, 0x38: // JR cc,e8 -- extra cycle only when taken
		cc := jrConditionIndex(opcode)
		e := c.fetchSigned8()
		if c.condition(cc) {
			c.PC = uint16(int32(c.PC) + int32(e))
			c.bus.Tick(4)
		}

	case 0xC2, 0xCA, 0xD2, 0xDA: // JP cc,a16 -- extra cycle only when taken
		cc := (opcode >> 3) & 0x03
		target := c.fetch16()
		if c.condition(cc) {
			c.PC = target
			c.bus.Tick(4)
		}

	case 0xC4, 0xCC, 0xD4, 0xDC: // CALL cc,a16 -- extra cycle (inside push16) only when taken
		cc := (opcode >> 3) & 0x03
		target := c.fetch16()
		if c.condition(cc) {
			c.push16(c.PC)
			c.PC = target
		}

	case 0xC0, 0xC8, 0xD0, 0xD8: // RET cc -- condition check always costs a cycle
		cc := (opcode >> 3) & 0x03
		c.bus.Tick(4)
		if c.condition(cc) {
			c.PC = c.pop16()
			c.bus.Tick(4)
		}

	case 0xC1, 0xD1, 0xE1, 0xF1: // POP rp2 (AF on F variant)
		v := c.pop16()
		switch (opcode >> 4) & 0x03 {
		case 0:
			c.SetBC(v)
		case 1:
			c.SetDE(v)
		case 2:
			c.SetHL(v)
		default:
			c.SetAF(v)
		}

	case 0xC5, 0xD5, 0xE5, 0xF5: // PUSH rp2 -- extra cycle charged inside push16
		var v uint16
		switch (opcode >> 4) & 0x03 {
		case 0:
			v = c.BC()
		case 1:
			v = c.DE()
		case 2:
			v = c.HL()
		default:
			v = c.AF()
		}
		c.push16(v)

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST n
		target := uint16(opcode & 0x38)
		c.push16(c.PC)
		c.PC = target
	}
}

func jrConditionIndex(opcode uint8) uint8 {
	switch opcode {
	case 0x20:
		return 0
	case 0x28:
		return 1
	case 0x30:
		return 2
	default:
		return 3
	}
}

// isIllegalOpcode reports the eleven undefined SM83 opcodes. Real hardware
// locks up when one is fetched; spec.md's chosen resolution (9 "Illegal
// opcodes") is to freeze the CPU in place rather than raise a Go error.
func isIllegalOpcode(opcode uint8) bool {
	switch opcode {
	case 0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4, 0xFC, 0xFD:
		return true
	default:
		return false
	}
}
