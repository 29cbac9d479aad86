package jeebie

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/deanthecoder/gbcore/jeebie/cpu"
	"github.com/deanthecoder/gbcore/jeebie/memory"
	"github.com/deanthecoder/gbcore/jeebie/video"
)

// cyclesPerFrame is the DMG/CGB T-cycle budget of one 59.7 Hz frame
// (154 scanlines * 456 T), per spec.md 5's frame-pacing contract.
const cyclesPerFrame = 70224

// DebuggerState represents the current debugger mode.
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

// Emulator is the root Game Boy/Game Boy Color machine: it owns the CPU,
// MMU (which in turn owns every memory-mapped device) and GPU, and drives
// them together one CPU instruction at a time. The MMU self-ticks the
// timer/serial/APU/OAM DMA on every bus access (spec.md 4.2); Emulator's
// job is purely to also tick the GPU by the same number of T-cycles each
// step consumed, since the GPU reads the MMU rather than the reverse.
type Emulator struct {
	cpu *cpu.CPU
	gpu *video.GPU
	mem *memory.MMU

	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	maxFrames    uint64
	minLoopCount int
}

func (e *Emulator) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.gpu = video.NewGpu(mem)
	e.mem = mem
	mem.SetTimerSeed(0xABCC)
}

// New creates a new emulator instance with no cartridge loaded.
func New() *Emulator {
	mem, err := memory.NewWithCartridge(memory.NewCartridge())
	if err != nil {
		// NoMBCType always constructs successfully; this would only fire on a
		// programmer error in NewCartridge's zero value.
		panic(fmt.Sprintf("jeebie: empty cartridge failed to initialize: %v", err))
	}

	e := &Emulator{}
	e.init(mem)
	return e
}

// NewWithFile creates a new emulator instance and loads the ROM file at path.
func NewWithFile(path string) (*Emulator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jeebie: reading ROM: %w", err)
	}

	slog.Debug("loaded ROM data", "size", len(data))

	mem, err := memory.NewWithCartridge(memory.NewCartridgeWithData(data))
	if err != nil {
		return nil, fmt.Errorf("jeebie: loading cartridge: %w", err)
	}

	e := &Emulator{}
	e.init(mem)
	return e, nil
}

// step executes exactly one CPU instruction (or one idle/interrupt-service
// step while halted/DMA-stalled) and ticks the GPU by the same number of
// T-cycles the MMU observed, keeping PPU timing in lockstep with the bus.
func (e *Emulator) step() int {
	before := e.mem.Cycles()
	e.cpu.Step()
	cycles := int(e.mem.Cycles() - before)

	e.gpu.Tick(cycles)

	if e.cpu.DoubleSpeed() != e.mem.DoubleSpeed() {
		e.mem.SetDoubleSpeedState(e.cpu.DoubleSpeed())
	}

	e.instructionCount++
	return cycles
}

// RunUntilFrame advances the machine until a full frame's worth of cycles
// has elapsed, honoring the debugger's paused/single-step/single-frame
// modes.
func (e *Emulator) RunUntilFrame() {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	switch state {
	case DebuggerPaused:
		return

	case DebuggerStep:
		e.debuggerMutex.Lock()
		requested := e.stepRequested
		e.stepRequested = false
		e.debuggerMutex.Unlock()

		if !requested {
			return
		}

		oldPC := e.cpu.GetPC()
		e.step()
		slog.Debug("step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))
		e.SetDebuggerState(DebuggerPaused)

	case DebuggerStepFrame:
		e.debuggerMutex.Lock()
		requested := e.frameRequested
		e.frameRequested = false
		e.debuggerMutex.Unlock()

		if !requested {
			return
		}

		e.runFrame()
		e.SetDebuggerState(DebuggerPaused)

	default: // DebuggerRunning
		e.runFrame()
	}
}

func (e *Emulator) runFrame() {
	total := 0
	for total < cyclesPerFrame {
		total += e.step()
	}

	e.frameCount++
	if e.frameCount%60 == 0 {
		slog.Debug("frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))
	}
}

func (e *Emulator) GetCurrentFrame() *video.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

func (e *Emulator) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

func (e *Emulator) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

func (e *Emulator) GetCPU() *cpu.CPU {
	return e.cpu
}

func (e *Emulator) GetMMU() *memory.MMU {
	return e.mem
}

// Debugger control methods.

func (e *Emulator) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("debugger state changed", "state", state)
}

func (e *Emulator) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *Emulator) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("emulator paused")
}

func (e *Emulator) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("emulator resumed")
}

func (e *Emulator) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("step instruction requested")
}

func (e *Emulator) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("step frame requested")
}

func (e *Emulator) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *Emulator) GetFrameCount() uint64 {
	return e.frameCount
}

// ConfigureCompletionDetection sets the bounds RunUntilComplete uses to
// decide a test ROM is done: it gives up after maxFrames regardless, and
// considers the ROM finished once the PC sits on the same address at
// minLoopCount consecutive frame boundaries (test ROMs like blargg's spin
// on a tight JP $ once they've written their result).
func (e *Emulator) ConfigureCompletionDetection(maxFrames uint64, minLoopCount int) {
	e.maxFrames = maxFrames
	e.minLoopCount = minLoopCount
}

// RunUntilComplete runs frames until the completion condition configured by
// ConfigureCompletionDetection is met, or maxFrames is reached.
func (e *Emulator) RunUntilComplete() {
	maxFrames := e.maxFrames
	if maxFrames == 0 {
		maxFrames = 600
	}

	lastPC := e.cpu.GetPC()
	loopCount := 0

	for e.frameCount < maxFrames {
		e.RunUntilFrame()

		pc := e.cpu.GetPC()
		if pc == lastPC {
			loopCount++
			if e.minLoopCount > 0 && loopCount >= e.minLoopCount {
				break
			}
		} else {
			loopCount = 0
		}
		lastPC = pc
	}
}
