// Package main is the entry point for lichess-recap, which streams a Lichess
// player's games for one year and prints a recap.
package main

import "github.com/cgebler-biproservice/LichessAnnualStats/cmd"

func main() {
	cmd.Execute()
}
