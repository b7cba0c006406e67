// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ui provides the small set of colored terminal output helpers
// shared by every cmd/mirage subcommand's human-readable output mode.
package ui

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	headerColor  = color.New(color.FgCyan, color.Bold)
	subHeadColor = color.New(color.FgCyan)
	labelColor   = color.New(color.FgWhite, color.Bold)
	dimColor     = color.New(color.FgHiBlack)
	warnColor    = color.New(color.FgYellow, color.Bold)
	countColor   = color.New(color.FgGreen)
)

// InitColors enables or disables color output. noColor forces plain text;
// otherwise color is auto-detected from the stdout terminal and NO_COLOR.
func InitColors(noColor bool) {
	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
		return
	}
	color.NoColor = !isatty.IsTerminal(os.Stdout.Fd()) && !isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Header prints a bold cyan section header.
func Header(s string) {
	headerColor.Println(s)
}

// SubHeader prints a cyan sub-section header.
func SubHeader(s string) {
	subHeadColor.Println(s)
}

// Label returns s styled as a bold field label, for inline use with Printf.
func Label(s string) string {
	return labelColor.Sprint(s)
}

// DimText returns s styled as dim/secondary text.
func DimText(s string) string {
	return dimColor.Sprint(s)
}

// CountText returns n styled as a count value.
func CountText(n int) string {
	return countColor.Sprint(n)
}

// Warning prints a yellow warning line.
func Warning(s string) {
	warnColor.Fprintln(os.Stderr, s)
}

// Warningf prints a formatted yellow warning line.
func Warningf(format string, args ...interface{}) {
	warnColor.Fprintf(os.Stderr, format+"\n", args...)
}

// Info prints an informational line to stderr.
func Info(s string) {
	fmt.Fprintln(os.Stderr, s)
}
