// Command isadsl is the ISA-DSL toolchain driver: it resolves, builds and
// validates an architecture description, then generates assembler,
// simulator, disassembler and documentation artifacts from it.
package main

import "github.com/isadsl/isadsl/cmd/isadsl/cmd"

func main() {
	cmd.Execute()
}
