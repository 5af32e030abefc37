package main

import "stemd/internal/stemctl"

func main() {
	stemctl.Main()
}
