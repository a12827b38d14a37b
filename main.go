// The main package for the malcrawl executable.
package main

import "github.com/JakeFAU/malcrawl/cmd"

func main() {
	cmd.Execute()
}
