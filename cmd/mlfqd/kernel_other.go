//go:build !linux

package main

import "mlfq-scheduler/pkg/platform"

// linuxKernel has no binding off Linux; newKernel falls back to Sim.
func linuxKernel() platform.Platform {
	return nil
}
