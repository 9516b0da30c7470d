package main

import "uos/kernel/kmain"

// bootCmdLine is filled in by the rt0 code before main runs.
var bootCmdLine string

// main only exists so the linker keeps Kmain and everything it reaches. The
// rt0 code jumps here after switching to long mode; reading the command line
// from a package variable stops the compiler from inlining the call away.
func main() {
	kmain.Kmain(bootCmdLine)
}
