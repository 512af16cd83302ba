// The micro32 command boots a modeled Micro32 board.
package main

func main() {
	Execute()
}
