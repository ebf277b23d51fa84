// Command doxsearch queries, validates and rewrites Doxygen search shards
// from the command line.
package main

func main() {
	Execute()
}
