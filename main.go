// Public domain.

package main

import "github.com/soniakeys/conjunct/internal/cprog"

func main() {
	cprog.Main()
}
