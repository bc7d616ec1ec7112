// Package colors renders Errands colour tags on the terminal.
package colors

import (
	"strings"

	"github.com/fatih/color"
)

// palette maps the Errands colour tags onto terminal colours.
var palette = map[string]color.Attribute{
	"blue":   color.FgBlue,
	"green":  color.FgGreen,
	"yellow": color.FgYellow,
	"orange": color.FgHiYellow,
	"red":    color.FgRed,
	"purple": color.FgMagenta,
	"brown":  color.FgHiRed,
	"cyan":   color.FgCyan,
}

// Known reports whether tag has a terminal colour.
func Known(tag string) bool {
	_, ok := palette[strings.ToLower(tag)]
	return ok
}

// Paint colours s with the colour of tag; unknown tags and "none" leave s
// untouched.
func Paint(tag, s string) string {
	attr, ok := palette[strings.ToLower(tag)]
	if !ok {
		return s
	}
	return color.New(attr).Sprint(s)
}
