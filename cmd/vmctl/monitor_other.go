//go:build !linux && !darwin

package main

// monitorCommands is empty on platforms this module doesn't wire raw
// terminal support for (see monitor.go).
func monitorCommands() []Command {
	return nil
}
