// Command obisim runs an OBI manager against a RAM subordinate and checks
// that every write reads back.
package main

import "github.com/sarchlab/obi/cmd/obisim/cmd"

func main() {
	cmd.Execute()
}
