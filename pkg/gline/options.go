package gline

import "github.com/robottwo/manette/pkg/shellinput"

type Options struct {
	Title              string
	PopupHeight        int
	PopupPageSize      int
	CompletionProvider shellinput.CompletionProvider
	// StartupCommand runs quietly once the screen is up.
	StartupCommand string
	// HomeDirectory is abbreviated to ~ in the title bar.
	HomeDirectory string
}

func NewOptions() Options {
	return Options{
		Title:          "manette",
		PopupHeight:    shellinput.DefaultPopupHeight,
		PopupPageSize:  shellinput.DefaultPopupPageSize,
		StartupCommand: "ls",
	}
}
