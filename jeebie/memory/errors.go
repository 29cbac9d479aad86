package memory

import "errors"

// ErrUnsupportedCartridge is returned when a cartridge header names an MBC
// family or configuration this build cannot construct a controller for
// (spec.md 7).
var ErrUnsupportedCartridge = errors.New("unsupported cartridge")

// ErrCorruptSnapshot is returned when a battery RAM or RTC snapshot cannot
// be restored, either because it's malformed or because there's no
// compatible cartridge loaded to receive it (spec.md 7).
var ErrCorruptSnapshot = errors.New("corrupt snapshot")
