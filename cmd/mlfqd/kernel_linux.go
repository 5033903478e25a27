//go:build linux

package main

import "mlfq-scheduler/pkg/platform"

// linuxKernel constructs the real SCHED_RR-backed platform binding.
func linuxKernel() platform.Platform {
	return platform.NewLinux()
}
