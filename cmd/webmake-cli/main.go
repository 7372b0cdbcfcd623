// Command webmake-cli renders, packages and publishes webmake sites from the
// terminal.
package main

func main() {
	Execute()
}
