package tui

import (
	"fmt"

	"github.com/muesli/termenv"
)

// PrintBanner outputs the ASCII art banner for the Graft CLI.
func PrintBanner() {
	p := termenv.ColorProfile()
	// Green-to-teal gradient
	s1 := termenv.String("                      __ _   ").Foreground(p.Color("#4ade80"))
	s2 := termenv.String("   __ _ _ __ __ _    / _| |_ ").Foreground(p.Color("#34d399"))
	s3 := termenv.String("  / _` | '__/ _` |  | |_| __|").Foreground(p.Color("#2dd4bf"))
	s4 := termenv.String(" | (_| | | | (_| |  |  _| |_ ").Foreground(p.Color("#22d3ee"))
	s5 := termenv.String("  \\__, |_|  \\__,_|  |_|  \\__|").Foreground(p.Color("#38bdf8"))
	s6 := termenv.String("  |___/                      ").Foreground(p.Color("#60a5fa"))

	fmt.Println()
	fmt.Println(s1)
	fmt.Println(s2)
	fmt.Println(s3)
	fmt.Println(s4)
	fmt.Println(s5)
	fmt.Println(s6)
	fmt.Println()
}

// Success prints a green check line.
func Success(format string, args ...any) {
	p := termenv.ColorProfile()
	fmt.Println(termenv.String("✔ " + fmt.Sprintf(format, args...)).Foreground(p.Color("#4ade80")))
}

// Fail prints a red cross line.
func Fail(format string, args ...any) {
	p := termenv.ColorProfile()
	fmt.Println(termenv.String("✘ " + fmt.Sprintf(format, args...)).Foreground(p.Color("#f87171")))
}

// Info prints a dim informational line.
func Info(format string, args ...any) {
	p := termenv.ColorProfile()
	fmt.Println(termenv.String("· " + fmt.Sprintf(format, args...)).Foreground(p.Color("#94a3b8")))
}
